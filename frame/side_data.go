package frame

import (
	"fmt"
	"slices"
)

type SideDataType int

const (
	SideDataTypePanScan = SideDataType(iota)
	SideDataTypeA53CC
	SideDataTypeStereo3D
	SideDataTypeMatrixEncoding
	SideDataTypeDownmixInfo
	SideDataTypeReplayGain
	SideDataTypeDisplayMatrix
	SideDataTypeAFD
	SideDataTypeMotionVectors
	SideDataTypeSkipSamples
	SideDataTypeAudioServiceType
)

func (t SideDataType) String() string {
	switch t {
	case SideDataTypePanScan:
		return "panscan"
	case SideDataTypeA53CC:
		return "a53_cc"
	case SideDataTypeStereo3D:
		return "stereo3d"
	case SideDataTypeMatrixEncoding:
		return "matrix_encoding"
	case SideDataTypeDownmixInfo:
		return "downmix_info"
	case SideDataTypeReplayGain:
		return "replay_gain"
	case SideDataTypeDisplayMatrix:
		return "display_matrix"
	case SideDataTypeAFD:
		return "afd"
	case SideDataTypeMotionVectors:
		return "motion_vectors"
	case SideDataTypeSkipSamples:
		return "skip_samples"
	case SideDataTypeAudioServiceType:
		return "audio_service_type"
	default:
		return fmt.Sprintf("SideDataType(%d)", int(t))
	}
}

type SideData struct {
	Type     SideDataType
	Data     []byte
	Metadata map[string]string
}

func (f *Frame) AddSideData(t SideDataType, data []byte) *SideData {
	f.SideData = append(f.SideData, SideData{Type: t, Data: data})
	return &f.SideData[len(f.SideData)-1]
}

func (f *Frame) GetSideData(t SideDataType) (*SideData, bool) {
	for idx := range f.SideData {
		if f.SideData[idx].Type == t {
			return &f.SideData[idx], true
		}
	}
	return nil, false
}

func (f *Frame) RemoveSideData(t SideDataType) {
	f.SideData = slices.DeleteFunc(f.SideData, func(sd SideData) bool {
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
		if sd.Metadata != nil {
			out[idx].Metadata = make(map[string]string, len(sd.Metadata))
			for k, v := range sd.Metadata {
				out[idx].Metadata[k] = v
			}
		}
	}
	return out
}
