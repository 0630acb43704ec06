package filereader

import "testing"

func TestClassifyChannelEEG(t *testing.T) {
	info := ClassifyChannel("Fp1")
	if info.Type != ChannelEEG || info.Unit != "uV" {
		t.Fatalf("Fp1 classified as %+v", info)
	}
}

func TestClassifyChannelPrefix(t *testing.T) {
	cases := map[string]ChannelType{
		"EOG-left": ChannelEOG,
		"ECG1":     ChannelECG,
		"EMG_arm":  ChannelEMG,
		"STIM1":    ChannelStim,
		"MEG0111":  ChannelMEG,
		"RESP":     ChannelResp,
		"MISC1":    ChannelMisc,
	}
	for label, want := range cases {
		if got := ClassifyChannel(label).Type; got != want {
			t.Errorf("ClassifyChannel(%q).Type = %v, want %v", label, got, want)
		}
	}
}

func TestClassifyChannelUnknownDefault(t *testing.T) {
	info := ClassifyChannel("weirdsensor9")
	if info.Type != ChannelUnknown || info.Unit != "uV" {
		t.Fatalf("unexpected default classification: %+v", info)
	}
}

func TestDecimateIndicesBounded(t *testing.T) {
	idx := DecimateIndices(1000, 10)
	if len(idx) != 10 {
		t.Fatalf("len = %d, want 10", len(idx))
	}
	if idx[0] != 0 {
		t.Fatalf("first index = %d, want 0", idx[0])
	}
}

func TestDecimateIndicesUnderLimit(t *testing.T) {
	idx := DecimateIndices(5, 10)
	if len(idx) != 5 {
		t.Fatalf("len = %d, want 5", len(idx))
	}
}
