package filereader

import "strings"

// tenTwentyEEG are the standard 10-20 system EEG channel labels,
// mapped to EEG/uV.
var tenTwentyEEG = map[string]struct{}{
	"FP1": {}, "FP2": {}, "F3": {}, "F4": {}, "C3": {}, "C4": {},
	"P3": {}, "P4": {}, "O1": {}, "O2": {}, "F7": {}, "F8": {},
	"T3": {}, "T4": {}, "T5": {}, "T6": {}, "FZ": {}, "CZ": {}, "PZ": {},
	"T7": {}, "T8": {}, "P7": {}, "P8": {},
}

var prefixTypes = []struct {
	prefix string
	typ    ChannelType
	unit   string
}{
	{"EOG", ChannelEOG, "uV"},
	{"ECG", ChannelECG, "uV"},
	{"EKG", ChannelECG, "uV"},
	{"EMG", ChannelEMG, "uV"},
	{"STIM", ChannelStim, "V"},
	{"MEG", ChannelMEG, "fT"},
	{"RESP", ChannelResp, "AU"},
	{"MISC", ChannelMisc, "AU"},
}

// ClassifyChannel is a pure function from a raw channel label to its
// channel type and physical unit, per spec §4.2: 10-20 EEG labels map
// to EEG/uV, known prefixes map by pattern, and anything else defaults
// to Unknown/uV.
func ClassifyChannel(label string) ChannelInfo {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.TrimPrefix(normalized, "EEG ")
	normalized = strings.TrimPrefix(normalized, "EEG-")

	if _, ok := tenTwentyEEG[normalized]; ok {
		return ChannelInfo{Label: label, Type: ChannelEEG, Unit: "uV"}
	}
	for _, p := range prefixTypes {
		if strings.HasPrefix(normalized, p.prefix) {
			return ChannelInfo{Label: label, Type: p.typ, Unit: p.unit}
		}
	}
	return ChannelInfo{Label: label, Type: ChannelUnknown, Unit: "uV"}
}
