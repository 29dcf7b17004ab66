package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit(t *testing.T) {
	t.Run("ZeroValueIsDimensionless", func(t *testing.T) {
		var u Unit
		assert.True(t, u.IsDimensionless())
		assert.Equal(t, Dimensionless, u)
	})

	t.Run("MulDiv", func(t *testing.T) {
		velocity := M.Div(S)
		assert.Equal(t, M, velocity.Mul(S))
		assert.Equal(t, Dimensionless, M.Div(M))
	})

	t.Run("Pow", func(t *testing.T) {
		area := M.Pow(2)
		assert.Equal(t, area, M.Mul(M))
		assert.Equal(t, Dimensionless, M.Pow(0))
	})

	t.Run("Sqrt", func(t *testing.T) {
		root, err := M.Pow(2).Sqrt()
		require.NoError(t, err)
		assert.Equal(t, M, root)

		_, err = M.Sqrt()
		var ei *ErrIncompatible
		require.ErrorAs(t, err, &ei)
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "dimensionless", Dimensionless.String())
		assert.Equal(t, "m", M.String())
		assert.Equal(t, "m/s", M.Div(S).String())
		assert.Equal(t, "m/s^2", M.Div(S.Pow(2)).String())
		assert.Equal(t, "1/s", Dimensionless.Div(S).String())
		assert.Equal(t, "counts", Counts.String())
	})
}
