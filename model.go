package dimgo

// ArrayModel is the type-erased owner of one contiguous element buffer
// of a concrete type, plus an optional variance buffer of the same size.
// Generic algorithms hold models through this interface and downcast in
// typed kernels.
type ArrayModel interface {
	// Len returns the number of elements in the buffer.
	Len() int

	// DType returns the runtime type tag.
	DType() DType

	// Clone returns a deep copy of values and variances.
	Clone() ArrayModel

	// Equal reports element-wise value equality, then variance
	// equality if present. Models of different dtype are never equal.
	Equal(other ArrayModel) bool

	// HasVariances reports whether a variance buffer is present.
	HasVariances() bool

	// SetVariances installs a variance buffer. It fails with
	// *ErrVariances if the element type cannot carry variances, if the
	// supplied model itself carries variances, or on a size or dtype
	// mismatch.
	SetVariances(v ArrayModel) error

	// MakeDefault allocates a zero-initialized same-type buffer of the
	// given volume, with a variance buffer when variances is set.
	MakeDefault(volume int, variances bool) (ArrayModel, error)
}

// model is the dense ArrayModel for element type T.
type model[T Elem] struct {
	values    []T
	variances []T // nil when absent
}

func newModel[T Elem](volume int, variances bool) (*model[T], error) {
	m := &model[T]{values: make([]T, volume)}
	if variances {
		if !canHaveVariances(KindOf[T]()) {
			return nil, &ErrVariances{Op: "create", Detail: "dtype " + KindOf[T]().String() + " cannot have variances"}
		}
		m.variances = make([]T, volume)
	}
	return m, nil
}

func (m *model[T]) Len() int { return len(m.values) }

func (m *model[T]) DType() DType { return Plain(KindOf[T]()) }

func (m *model[T]) Clone() ArrayModel {
	out := &model[T]{values: append([]T(nil), m.values...)}
	if m.variances != nil {
		out.variances = append([]T(nil), m.variances...)
	}
	return out
}

func (m *model[T]) Equal(other ArrayModel) bool {
	o, ok := other.(*model[T])
	if !ok || len(m.values) != len(o.values) {
		return false
	}
	if (m.variances == nil) != (o.variances == nil) {
		return false
	}
	for i := range m.values {
		if m.values[i] != o.values[i] {
			return false
		}
	}
	for i := range m.variances {
		if m.variances[i] != o.variances[i] {
			return false
		}
	}
	return true
}

func (m *model[T]) HasVariances() bool { return m.variances != nil }

func (m *model[T]) SetVariances(v ArrayModel) error {
	if v == nil {
		m.variances = nil
		return nil
	}
	if !canHaveVariances(KindOf[T]()) {
		return &ErrVariances{Op: "set variances", Detail: "dtype " + KindOf[T]().String() + " cannot have variances"}
	}
	o, ok := v.(*model[T])
	if !ok {
		return &ErrVariances{Op: "set variances", Detail: "variance dtype " + v.DType().String() + " does not match " + m.DType().String()}
	}
	if o.variances != nil {
		return &ErrVariances{Op: "set variances", Detail: "variances must not have variances themselves"}
	}
	if len(o.values) != len(m.values) {
		return &ErrVariances{Op: "set variances", Detail: "variance buffer size mismatch"}
	}
	m.variances = append([]T(nil), o.values...)
	return nil
}

func (m *model[T]) MakeDefault(volume int, variances bool) (ArrayModel, error) {
	nm, err := newModel[T](volume, variances)
	if err != nil {
		return nil, err
	}
	return nm, nil
}
