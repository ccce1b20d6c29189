package wasm

import "testing"

func TestDefaultFeatures(t *testing.T) {
	f := DefaultFeatures()
	if !f.MutableGlobals {
		t.Error("mutable globals should be on by default")
	}
	if f.SIMD || f.ReferenceTypes || f.Exceptions || f.Threads {
		t.Errorf("proposals should be off by default: %+v", f)
	}
}

func TestFeatureCascades(t *testing.T) {
	f := Features{}.WithReferenceTypes()
	if !f.ReferenceTypes || !f.BulkMemory {
		t.Errorf("reference types should enable bulk memory: %+v", f)
	}

	f = Features{}.WithExceptions()
	if !f.Exceptions || !f.ReferenceTypes || !f.BulkMemory {
		t.Errorf("exceptions should enable reference types and bulk memory: %+v", f)
	}
}

func TestFeatureSetByName(t *testing.T) {
	var f Features
	if !f.Set(FeatureSIMD, true) || !f.SIMD {
		t.Error("Set(simd) failed")
	}
	if !f.Set(FeatureExceptions, true) || !f.ReferenceTypes {
		t.Error("Set(exceptions) should cascade to reference types")
	}
	if f.Set("no-such-feature", true) {
		t.Error("unknown feature accepted")
	}
}

func TestEnableAll(t *testing.T) {
	f := Features{}.EnableAll()
	names := []string{
		FeatureMutableGlobals, FeatureSignExtension, FeatureSatFloatToInt,
		FeatureMultiValue, FeatureSIMD, FeatureReferenceTypes,
		FeatureBulkMemory, FeatureExceptions, FeatureTailCall,
		FeatureThreads, FeatureMultiMemory, FeatureAnnotations,
	}
	for _, n := range names {
		if !featureEnabled(f, n) {
			t.Errorf("EnableAll left %s off", n)
		}
	}
}
