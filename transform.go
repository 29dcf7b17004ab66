package dimgo

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/dimgo/dims"
	"github.com/hupe1980/dimgo/resource"
	"github.com/hupe1980/dimgo/units"
)

// defaultParallelThreshold is the minimum output volume before a loop
// is partitioned across workers.
const defaultParallelThreshold = 1 << 14

// Engine executes typed element-wise operations over broadcast
// operands. The zero-configuration engine behind the package-level
// functions parallelizes up to GOMAXPROCS; construct a dedicated
// Engine to bound workers, collect metrics, or account memory.
type Engine struct {
	workers   int
	threshold int
	logger    *Logger
	metrics   MetricsCollector
	res       *resource.Controller
}

// NewEngine creates a new Engine with the given options.
func NewEngine(optFns ...Option) *Engine {
	opts := options{
		workers:           runtime.GOMAXPROCS(0),
		parallelThreshold: defaultParallelThreshold,
		logger:            NoopLogger(),
		metrics:           NoopMetricsCollector{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if w := opts.res.Workers(); w > 0 && w < opts.workers {
		opts.workers = w
	}

	return &Engine{
		workers:   opts.workers,
		threshold: opts.parallelThreshold,
		logger:    opts.logger,
		metrics:   opts.metrics,
		res:       opts.res,
	}
}

var defaultEngine = NewEngine()

// Transform applies op to the inputs using the default engine.
func Transform(op *Op, inputs ...*Variable) (*Variable, error) {
	return defaultEngine.Transform(op, inputs...)
}

// TransformInPlace applies op to the inputs using the default engine,
// writing through out.
func TransformInPlace(op *Op, out *Variable, inputs ...*Variable) error {
	return defaultEngine.TransformInPlace(op, out, inputs...)
}

// AccumulateInPlace folds the inputs into out using the default engine.
func AccumulateInPlace(op *Op, out *Variable, inputs ...*Variable) error {
	return defaultEngine.AccumulateInPlace(op, out, inputs...)
}

type runInfo struct {
	elements int
	parallel bool
}

// Transform applies op element-wise across the inputs and returns a
// newly allocated result. Input dimensions are merged into the output
// shape, broadcasting size-1 and missing axes. The unit rule runs once
// before any allocation; the output carries variances if the kernel
// propagates them and any input has some.
func (e *Engine) Transform(op *Op, inputs ...*Variable) (*Variable, error) {
	start := time.Now()
	out, info, err := e.transform(op, inputs)
	e.metrics.RecordTransform(op.name, info.elements, info.parallel, time.Since(start), err)
	e.logger.Debug("transform",
		slog.String("op", op.name),
		slog.Int("elements", info.elements),
		slog.Bool("parallel", info.parallel),
	)
	return out, err
}

func (e *Engine) transform(op *Op, inputs []*Variable) (*Variable, runInfo, error) {
	var info runInfo

	if len(inputs) == 0 || len(inputs) > maxArgs {
		return nil, info, &ErrUnsupportedType{Op: op.name, DTypes: dtypeList(inputs)}
	}

	key := argKey{n: len(inputs)}
	for i, in := range inputs {
		key.k[i] = in.DType().Kind
	}

	k, ok := op.kernels[key]
	if !ok {
		return nil, info, &ErrUnsupportedType{Op: op.name, DTypes: dtypeList(inputs)}
	}

	target := inputs[0].dims
	for _, in := range inputs[1:] {
		merged, err := target.Merge(in.dims)
		if err != nil {
			return nil, info, err
		}
		target = merged
	}

	if err := checkVariances(op.name, k.variances, inputs); err != nil {
		return nil, info, err
	}

	outUnit, err := op.unit(unitsOf(inputs)...)
	if err != nil {
		return nil, info, err
	}

	withVar := false
	if k.hasVar {
		for _, in := range inputs {
			if in.HasVariances() {
				withVar = true
				break
			}
		}
	}

	bytes := int64(target.Volume()) * kindSize(k.out)
	if withVar {
		bytes *= 2
	}
	if err := e.res.AcquireMemory(context.Background(), bytes); err != nil {
		return nil, info, err
	}
	defer e.res.ReleaseMemory(bytes)
	e.metrics.RecordAlloc(bytes)

	out, err := Create(Plain(k.out), target, outUnit, withVar)
	if err != nil {
		return nil, info, err
	}

	spans, err := spansFor(inputs, target)
	if err != nil {
		return nil, info, err
	}
	outSpan := span{target: target, strides: dims.Contiguous(target), m: out.data.m}

	info.elements = target.Volume()
	info.parallel = e.shouldParallelize(target, spans)

	if err := e.run(k.run, outSpan, spans, info.parallel); err != nil {
		return nil, info, err
	}
	return out, info, nil
}

// TransformInPlace applies op across the inputs, writing through out.
// Every input dimension must be present in out so no output element is
// visited twice; the unit rule, applied to out's and the inputs' units,
// must reproduce out's unit since an in-place operation cannot change
// it. All checks run before out is touched, so a failed call leaves it
// unmodified.
func (e *Engine) TransformInPlace(op *Op, out *Variable, inputs ...*Variable) error {
	start := time.Now()
	info, err := e.transformInPlace(op, out, inputs)
	e.metrics.RecordTransform(op.name, info.elements, info.parallel, time.Since(start), err)
	return err
}

func (e *Engine) transformInPlace(op *Op, out *Variable, inputs []*Variable) (runInfo, error) {
	var info runInfo

	operands := append([]*Variable{out}, inputs...)

	ik, ok := op.ipKernels[ipKeyFor(operands)]
	if !ok {
		return info, &ErrUnsupportedType{Op: op.name, DTypes: dtypeList(operands)}
	}

	merged := inputs[0].dims
	for _, in := range inputs[1:] {
		m, err := merged.Merge(in.dims)
		if err != nil {
			return info, err
		}
		merged = m
	}
	if !out.dims.Includes(merged) {
		return info, &dims.ErrDimensionMismatch{
			A:      out.dims,
			B:      merged,
			Detail: "in-place output must cover all input dimensions",
		}
	}
	target := out.dims

	if err := checkVariances(op.name, ik.variances, operands); err != nil {
		return info, err
	}
	if err := checkVarianceLoss(op.name, out, inputs); err != nil {
		return info, err
	}

	expected, err := op.unit(unitsOf(operands)...)
	if err != nil {
		return info, err
	}
	if !expected.Equal(out.Unit()) {
		return info, &units.ErrIncompatible{Op: op.name, A: expected, B: out.Unit()}
	}

	if out.ensureExclusive() {
		e.recordClone(op.name, out)
	}

	dstSpan := span{target: target, strides: out.strides, offset: out.offset, m: out.data.m}
	spans, err := spansFor(inputs, target)
	if err != nil {
		return info, err
	}

	info.elements = target.Volume()
	info.parallel = e.shouldParallelize(target, append(spans, dstSpan))

	return info, e.run(ik.run, dstSpan, spans, info.parallel)
}

// AccumulateInPlace folds the inputs into out: the iteration space is
// out's dimensions merged with the inputs', and axes absent from out
// are reduced by visiting its elements repeatedly. Unlike the
// transforms, no unit rule runs; callers prepare out's unit and
// initial values. Loops are partitioned only when out covers the
// outermost iterated axis, otherwise chunks would race on shared
// output elements.
func (e *Engine) AccumulateInPlace(op *Op, out *Variable, inputs ...*Variable) error {
	start := time.Now()
	info, err := e.accumulateInPlace(op, out, inputs)
	e.metrics.RecordTransform(op.name, info.elements, info.parallel, time.Since(start), err)
	return err
}

func (e *Engine) accumulateInPlace(op *Op, out *Variable, inputs []*Variable) (runInfo, error) {
	var info runInfo

	operands := append([]*Variable{out}, inputs...)

	ik, ok := op.ipKernels[ipKeyFor(operands)]
	if !ok {
		return info, &ErrUnsupportedType{Op: op.name, DTypes: dtypeList(operands)}
	}

	target := out.dims
	for _, in := range inputs {
		merged, err := target.Merge(in.dims)
		if err != nil {
			return info, err
		}
		target = merged
	}

	if err := checkVariances(op.name, ik.variances, operands); err != nil {
		return info, err
	}
	if err := checkVarianceLoss(op.name, out, inputs); err != nil {
		return info, err
	}

	if out.ensureExclusive() {
		e.recordClone(op.name, out)
	}

	dstStrides, err := dims.Relative(out.dims, out.strides, target)
	if err != nil {
		return info, err
	}
	dstSpan := span{target: target, strides: dstStrides, offset: out.offset, m: out.data.m}
	spans, err := spansFor(inputs, target)
	if err != nil {
		return info, err
	}

	info.elements = target.Volume()
	info.parallel = e.shouldParallelize(target, append(spans, dstSpan))

	return info, e.run(ik.run, dstSpan, spans, info.parallel)
}

// recordClone reports that writing through out forced a copy-on-write
// clone of its backing buffer.
func (e *Engine) recordClone(op string, out *Variable) {
	bytes := int64(out.data.m.Len()) * kindSize(out.DType().Kind)
	if out.HasVariances() {
		bytes *= 2
	}
	e.metrics.RecordClone(bytes)
	e.logger.WithOp(op).Debug("copy-on-write clone",
		slog.Int64("bytes", bytes),
	)
}

// shouldParallelize decides whether a loop over target is partitioned
// along the outermost axis. Any operand with stride zero along that
// axis vetoes partitioning: a broadcast input would be re-read per
// chunk and a reduced output would be written concurrently.
func (e *Engine) shouldParallelize(target dims.Dimensions, spans []span) bool {
	if e.workers <= 1 || target.NDim() == 0 {
		return false
	}
	if target.Volume() < e.threshold {
		return false
	}
	if target.ExtentAt(0) < 2 {
		return false
	}
	for _, s := range spans {
		if s.strides.At(0) == 0 {
			return false
		}
	}
	return true
}

func (e *Engine) run(fn func(span, []span) error, dst span, args []span, parallel bool) error {
	if !parallel {
		return fn(dst, args)
	}

	if err := e.res.AcquireRun(context.Background()); err != nil {
		return err
	}
	defer e.res.ReleaseRun()

	extent := dst.target.ExtentAt(0)
	n := e.workers
	if n > extent {
		n = extent
	}
	step := (extent + n - 1) / n

	g := new(errgroup.Group)
	g.SetLimit(n)

	for begin := 0; begin < extent; begin += step {
		end := begin + step
		if end > extent {
			end = extent
		}
		dc := dst.chunk(begin, end)
		ac := make([]span, len(args))
		for i, a := range args {
			ac[i] = a.chunk(begin, end)
		}
		g.Go(func() error {
			return fn(dc, ac)
		})
	}

	return g.Wait()
}

func spansFor(inputs []*Variable, target dims.Dimensions) ([]span, error) {
	spans := make([]span, len(inputs))
	for i, in := range inputs {
		s, err := makeSpan(in, target)
		if err != nil {
			return nil, err
		}
		spans[i] = s
	}
	return spans, nil
}

func ipKeyFor(operands []*Variable) argKey {
	key := argKey{n: len(operands)}
	for i, v := range operands {
		key.k[i] = v.DType().Kind
	}
	return key
}

func checkVariances(op string, reqs [maxArgs]VarianceReq, operands []*Variable) error {
	for i, v := range operands {
		switch reqs[i] {
		case VarianceRequired:
			if !v.HasVariances() {
				return &ErrVariances{Op: op, Detail: "operand " + v.DType().String() + " is missing required variances"}
			}
		case VarianceForbidden:
			if v.HasVariances() {
				return &ErrVariances{Op: op, Detail: "operand " + v.DType().String() + " must not have variances"}
			}
		}
	}
	return nil
}

// checkVarianceLoss rejects in-place runs that would silently discard
// input uncertainties because the output has no variance buffer.
func checkVarianceLoss(op string, out *Variable, inputs []*Variable) error {
	if out.HasVariances() {
		return nil
	}
	for _, in := range inputs {
		if in.HasVariances() {
			return &ErrVariances{Op: op, Detail: "output without variances cannot receive input variances"}
		}
	}
	return nil
}

func unitsOf(vs []*Variable) []units.Unit {
	us := make([]units.Unit, len(vs))
	for i, v := range vs {
		us[i] = v.Unit()
	}
	return us
}

func dtypeList(vs []*Variable) []DType {
	dts := make([]DType, len(vs))
	for i, v := range vs {
		dts[i] = v.DType()
	}
	return dts
}
