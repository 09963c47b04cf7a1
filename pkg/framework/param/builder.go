package param

// Builder provides a fluent API for creating parameters
type Builder struct {
	param        *Parameter
	defaultPlain float64
	centre       float64
}

// New creates a new parameter builder
func New(id uint32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:        id,
			Name:      name,
			ShortName: name,
			Min:       0,
			Max:       1,
			Skew:      1,
			Flags:     CanAutomate,
		},
	}
}

// ShortName sets the short name
func (b *Builder) ShortName(name string) *Builder {
	b.param.ShortName = name
	return b
}

// Range sets the min and max values
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default value in plain units.
func (b *Builder) Default(value float64) *Builder {
	b.defaultPlain = value
	return b
}

// SkewCentre skews the range so the middle of the normalized range maps to
// centre. Applied at Build, after Range.
func (b *Builder) SkewCentre(centre float64) *Builder {
	b.centre = centre
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Steps sets the number of discrete steps
func (b *Builder) Steps(count int32) *Builder {
	b.param.StepCount = count
	return b
}

// Toggle creates a boolean parameter
func (b *Builder) Toggle() *Builder {
	b.param.Min = 0
	b.param.Max = 1
	b.param.StepCount = 1
	b.defaultPlain = 0
	b.param.formatFunc = OnOffFormatter
	b.param.parseFunc = OnOffParser
	return b
}

// ReadOnly marks the parameter as read-only
func (b *Builder) ReadOnly() *Builder {
	b.param.Flags |= IsReadOnly
	b.param.Flags &^= CanAutomate
	return b
}

// Hidden marks the parameter as hidden
func (b *Builder) Hidden() *Builder {
	b.param.Flags |= IsHidden
	return b
}

// Formatter sets custom value formatting and parsing
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build returns the configured parameter
func (b *Builder) Build() *Parameter {
	p := b.param
	if b.centre != 0 {
		p.Skew = SkewForCentre(p.Min, p.Max, b.centre)
	}
	p.DefaultValue = p.Normalize(b.defaultPlain)
	p.SetValue(p.DefaultValue)
	return p
}
