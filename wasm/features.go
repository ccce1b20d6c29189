package wasm

// Features enumerates the standard proposals the toolkit can gate on.
// The zero value is the bare MVP with every proposal off. DefaultFeatures
// adds mutable globals, which shipped with every engine; all other
// proposals are off by default.
//
// Features is plain data: copy it freely, there is no hidden state.
type Features struct {
	MutableGlobals    bool
	SignExtension     bool
	SatFloatToInt     bool
	MultiValue        bool
	SIMD              bool
	ReferenceTypes    bool
	BulkMemory        bool
	Exceptions        bool
	TailCall          bool
	Threads           bool
	MultiMemory       bool
	Annotations       bool
}

// DefaultFeatures returns the default feature set.
func DefaultFeatures() Features {
	return Features{MutableGlobals: true}
}

// EnableAll returns a copy with every proposal switched on.
func (f Features) EnableAll() Features {
	return Features{
		MutableGlobals: true,
		SignExtension:  true,
		SatFloatToInt:  true,
		MultiValue:     true,
		SIMD:           true,
		ReferenceTypes: true,
		BulkMemory:     true,
		Exceptions:     true,
		TailCall:       true,
		Threads:        true,
		MultiMemory:    true,
		Annotations:    true,
	}
}

// WithReferenceTypes enables the reference-types proposal. Reference types
// build on bulk memory, so that proposal is enabled as well.
func (f Features) WithReferenceTypes() Features {
	f.ReferenceTypes = true
	f.BulkMemory = true
	return f
}

// WithExceptions enables the exception-handling proposal, which builds on
// reference types.
func (f Features) WithExceptions() Features {
	f = f.WithReferenceTypes()
	f.Exceptions = true
	return f
}

// Feature names as used in diagnostics and CLI flags.
const (
	FeatureMutableGlobals = "mutable-globals"
	FeatureSignExtension  = "sign-extension"
	FeatureSatFloatToInt  = "saturating-float-to-int"
	FeatureMultiValue     = "multi-value"
	FeatureSIMD           = "simd"
	FeatureReferenceTypes = "reference-types"
	FeatureBulkMemory     = "bulk-memory"
	FeatureExceptions     = "exceptions"
	FeatureTailCall       = "tail-call"
	FeatureThreads        = "threads"
	FeatureMultiMemory    = "multi-memory"
	FeatureAnnotations    = "annotations"
)

// Set switches a single proposal on or off by its diagnostic name,
// applying the cascade rules when enabling. It reports whether the name
// was recognized.
func (f *Features) Set(name string, enabled bool) bool {
	switch name {
	case FeatureMutableGlobals:
		f.MutableGlobals = enabled
	case FeatureSignExtension:
		f.SignExtension = enabled
	case FeatureSatFloatToInt:
		f.SatFloatToInt = enabled
	case FeatureMultiValue:
		f.MultiValue = enabled
	case FeatureSIMD:
		f.SIMD = enabled
	case FeatureReferenceTypes:
		if enabled {
			*f = f.WithReferenceTypes()
		} else {
			f.ReferenceTypes = false
		}
	case FeatureBulkMemory:
		f.BulkMemory = enabled
	case FeatureExceptions:
		if enabled {
			*f = f.WithExceptions()
		} else {
			f.Exceptions = false
		}
	case FeatureTailCall:
		f.TailCall = enabled
	case FeatureThreads:
		f.Threads = enabled
	case FeatureMultiMemory:
		f.MultiMemory = enabled
	case FeatureAnnotations:
		f.Annotations = enabled
	default:
		return false
	}
	return true
}
