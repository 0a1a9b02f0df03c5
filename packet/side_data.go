package packet

import (
	"fmt"
	"slices"
)

type SideDataType int

const (
	SideDataTypePalette = SideDataType(iota)
	SideDataTypeNewExtradata
	SideDataTypeParamChange
	SideDataTypeH263MBInfo
	SideDataTypeReplayGain
	SideDataTypeDisplayMatrix
	SideDataTypeStereo3D
	SideDataTypeAudioServiceType
	SideDataTypeQualityStats
	SideDataTypeFallbackTrack
	SideDataTypeCPBProperties
	SideDataTypeSkipSamples
)

func (t SideDataType) String() string {
	switch t {
	case SideDataTypePalette:
		return "palette"
	case SideDataTypeNewExtradata:
		return "new_extradata"
	case SideDataTypeParamChange:
		return "param_change"
	case SideDataTypeH263MBInfo:
		return "h263_mb_info"
	case SideDataTypeReplayGain:
		return "replay_gain"
	case SideDataTypeDisplayMatrix:
		return "display_matrix"
	case SideDataTypeStereo3D:
		return "stereo3d"
	case SideDataTypeAudioServiceType:
		return "audio_service_type"
	case SideDataTypeQualityStats:
		return "quality_stats"
	case SideDataTypeFallbackTrack:
		return "fallback_track"
	case SideDataTypeCPBProperties:
		return "cpb_properties"
	case SideDataTypeSkipSamples:
		return "skip_samples"
	default:
		return fmt.Sprintf("SideDataType(%d)", int(t))
	}
}

type SideData struct {
	Type SideDataType
	Data []byte
}

// AddSideData appends a block; several blocks of the same type are allowed.
func (p *Packet) AddSideData(t SideDataType, data []byte) {
	p.SideData = append(p.SideData, SideData{Type: t, Data: data})
}

// GetSideData returns the first block of the given type.
func (p *Packet) GetSideData(t SideDataType) ([]byte, bool) {
	for _, sd := range p.SideData {
		if sd.Type == t {
			return sd.Data, true
		}
	}
	return nil, false
}

func (p *Packet) RemoveSideData(t SideDataType) {
	p.SideData = slices.DeleteFunc(p.SideData, func(sd SideData) bool {
		return sd.Type == t
	})
}

func cloneSideData(in []SideData) []SideData {
	if in == nil {
		return nil
	}
	out := make([]SideData, len(in))
	for idx, sd := range in {
		out[idx] = SideData{Type: sd.Type, Data: slices.Clone(sd.Data)}
	}
	return out
}
