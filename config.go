package llcore

// config holds the ambient knobs a Cursor is constructed with. Each
// Option mutates the Cursor's own copy of the defaults at construction,
// so no config is shared between cursors, mirroring the teacher's
// functional-options RuntimeConfig pattern.
type config struct {
	errorLogCapacity int
	pic              bool
	pie              bool
	debugABI         bool
}

func defaultConfig() config {
	return config{errorLogCapacity: 0, pic: true, pie: false}
}

// Option customizes a Cursor at construction time.
type Option func(*config)

// WithErrorLogCapacity bounds the error-log retained by the Cursor's
// errstack.Context (spec.md §4.A "~1024"); 0 keeps the package default.
func WithErrorLogCapacity(n int) Option {
	return func(c *config) { c.errorLogCapacity = n }
}

// WithPositionIndependentCode sets the PIC/PIE defaults every module
// minted by the Cursor inherits from InitStandard (spec.md §6
// "Environment").
func WithPositionIndependentCode(pic, pie bool) Option {
	return func(c *config) { c.pic = pic; c.pie = pie }
}

// WithDebugABI selects the debug ABI namespace tag (see Cursor.ABINamespace);
// the spec's REDESIGN FLAGS note that debug and release builds must
// never link against each other's symbols by accident.
func WithDebugABI(debug bool) Option {
	return func(c *config) { c.debugABI = debug }
}
