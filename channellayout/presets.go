package channellayout

const (
	maskFL   = uint64(1) << ChannelFrontLeft
	maskFR   = uint64(1) << ChannelFrontRight
	maskFC   = uint64(1) << ChannelFrontCenter
	maskLFE  = uint64(1) << ChannelLowFrequency
	maskBL   = uint64(1) << ChannelBackLeft
	maskBR   = uint64(1) << ChannelBackRight
	maskFLC  = uint64(1) << ChannelFrontLeftOfCenter
	maskFRC  = uint64(1) << ChannelFrontRightOfCenter
	maskBC   = uint64(1) << ChannelBackCenter
	maskSL   = uint64(1) << ChannelSideLeft
	maskSR   = uint64(1) << ChannelSideRight
	maskTC   = uint64(1) << ChannelTopCenter
	maskTFL  = uint64(1) << ChannelTopFrontLeft
	maskTFC  = uint64(1) << ChannelTopFrontCenter
	maskTFR  = uint64(1) << ChannelTopFrontRight
	maskTBL  = uint64(1) << ChannelTopBackLeft
	maskTBC  = uint64(1) << ChannelTopBackCenter
	maskTBR  = uint64(1) << ChannelTopBackRight
	maskDL   = uint64(1) << ChannelStereoLeft
	maskDR   = uint64(1) << ChannelStereoRight
	maskWL   = uint64(1) << ChannelWideLeft
	maskWR   = uint64(1) << ChannelWideRight
	maskLFE2 = uint64(1) << ChannelLowFrequency2
	maskTSL  = uint64(1) << ChannelTopSideLeft
	maskTSR  = uint64(1) << ChannelTopSideRight
	maskBFC  = uint64(1) << ChannelBottomFrontCenter
	maskBFL  = uint64(1) << ChannelBottomFrontLeft
	maskBFR  = uint64(1) << ChannelBottomFrontRight
)

const (
	MaskMono          = maskFC
	MaskStereo        = maskFL | maskFR
	Mask2Point1       = MaskStereo | maskLFE
	MaskSurround      = MaskStereo | maskFC
	Mask2_1           = MaskStereo | maskBC
	Mask4Point0       = MaskSurround | maskBC
	MaskQuad          = MaskStereo | maskBL | maskBR
	Mask2_2           = MaskStereo | maskSL | maskSR
	Mask3Point1       = MaskSurround | maskLFE
	Mask5Point0Back   = MaskSurround | maskBL | maskBR
	Mask5Point0       = MaskSurround | maskSL | maskSR
	Mask4Point1       = Mask4Point0 | maskLFE
	Mask5Point1Back   = Mask5Point0Back | maskLFE
	Mask5Point1       = Mask5Point0 | maskLFE
	Mask6Point0       = Mask5Point0 | maskBC
	Mask6Point0Front  = Mask2_2 | maskFLC | maskFRC
	Mask3Point1Point2 = Mask3Point1 | maskTFL | maskTFR
	MaskHexagonal     = Mask5Point0Back | maskBC
	Mask6Point1       = Mask5Point1 | maskBC
	Mask6Point1Back   = Mask5Point1Back | maskBC
	Mask6Point1Front  = Mask6Point0Front | maskLFE
	Mask7Point0       = Mask5Point0 | maskBL | maskBR
	Mask7Point0Front  = Mask5Point0 | maskFLC | maskFRC
	Mask7Point1       = Mask5Point1 | maskBL | maskBR
	Mask7Point1Wide   = Mask5Point1 | maskFLC | maskFRC
	Mask7Point1WideBk = Mask5Point1Back | maskFLC | maskFRC
	Mask5Point1Point2 = Mask5Point1 | maskTFL | maskTFR
	Mask7Point1TopBk  = Mask5Point1Back | maskTFL | maskTFR
	MaskOctagonal     = Mask5Point0 | maskBL | maskBC | maskBR
	MaskCube          = MaskQuad | maskTFL | maskTFR | maskTBL | maskTBR
	Mask5Point1Point4 = Mask5Point1Point2 | maskTBL | maskTBR
	Mask7Point1Point2 = Mask7Point1 | maskTFL | maskTFR
	Mask7Point1Point4 = Mask7Point1Point2 | maskTBL | maskTBR
	Mask7Point2Point3 = Mask7Point1Point2 | maskTBC | maskLFE2
	Mask9Point1Point4 = Mask7Point1Point4 | maskFLC | maskFRC
	MaskHexadecagonal = MaskOctagonal | maskWL | maskWR | maskTBL | maskTBR | maskTBC | maskTFC | maskTFL | maskTFR
	MaskDownmix       = maskDL | maskDR
	Mask22Point2      = Mask7Point1Point4 | maskFLC | maskFRC | maskBC | maskLFE2 | maskTC | maskTFC | maskTBC | maskTSL | maskTSR | maskBFC | maskBFL | maskBFR
)

// Preset is a named native layout.
type Preset struct {
	Name string
	Mask uint64
}

// presets is ordered: Default picks the first entry of a given size and
// Describe the first entry of a given mask.
var presets = []Preset{
	{"mono", MaskMono},
	{"stereo", MaskStereo},
	{"2.1", Mask2Point1},
	{"3.0", MaskSurround},
	{"3.0(back)", Mask2_1},
	{"4.0", Mask4Point0},
	{"quad", MaskQuad},
	{"quad(side)", Mask2_2},
	{"3.1", Mask3Point1},
	{"5.0", Mask5Point0Back},
	{"5.0(side)", Mask5Point0},
	{"4.1", Mask4Point1},
	{"5.1", Mask5Point1Back},
	{"5.1(side)", Mask5Point1},
	{"6.0", Mask6Point0},
	{"6.0(front)", Mask6Point0Front},
	{"3.1.2", Mask3Point1Point2},
	{"hexagonal", MaskHexagonal},
	{"6.1", Mask6Point1},
	{"6.1(back)", Mask6Point1Back},
	{"6.1(front)", Mask6Point1Front},
	{"7.0", Mask7Point0},
	{"7.0(front)", Mask7Point0Front},
	{"7.1", Mask7Point1},
	{"7.1(wide)", Mask7Point1Wide},
	{"7.1(wide-side)", Mask7Point1WideBk},
	{"5.1.2", Mask5Point1Point2},
	{"7.1(top)", Mask7Point1TopBk},
	{"octagonal", MaskOctagonal},
	{"cube", MaskCube},
	{"5.1.4", Mask5Point1Point4},
	{"7.1.2", Mask7Point1Point2},
	{"7.1.4", Mask7Point1Point4},
	{"7.2.3", Mask7Point2Point3},
	{"9.1.4", Mask9Point1Point4},
	{"hexadecagonal", MaskHexadecagonal},
	{"downmix", MaskDownmix},
	{"22.2", Mask22Point2},
}

// Presets returns the named native layouts.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

var (
	Mono          = FromMask(MaskMono)
	Stereo        = FromMask(MaskStereo)
	Layout2_1     = FromMask(Mask2Point1)
	Surround      = FromMask(MaskSurround)
	Quad          = FromMask(MaskQuad)
	Layout5_0     = FromMask(Mask5Point0Back)
	Layout5_1     = FromMask(Mask5Point1Back)
	Layout5_1Side = FromMask(Mask5Point1)
	Layout6_0     = FromMask(Mask6Point0)
	Layout7_1     = FromMask(Mask7Point1)
	Layout7_1Wide = FromMask(Mask7Point1Wide)
)

func presetByName(name string) (uint64, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p.Mask, true
		}
	}
	return 0, false
}

func presetByMask(mask uint64) (string, bool) {
	for _, p := range presets {
		if p.Mask == mask {
			return p.Name, true
		}
	}
	return "", false
}
