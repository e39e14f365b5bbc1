package display

import "github.com/genricoloni/screend/internal/domain"

// ModesMatch reports whether two display modes are practically equivalent.
// Sizes must be equal; depth and refresh rate only have to agree when both
// sides report them.
func ModesMatch(a, b domain.DisplayMode) bool {
	if a.Width != b.Width || a.Height != b.Height {
		return false
	}

	if a.BitDepth != domain.BitDepthMulti &&
		b.BitDepth != domain.BitDepthMulti &&
		a.BitDepth != b.BitDepth {
		return false
	}

	if a.RefreshRate != domain.RefreshRateUnknown &&
		b.RefreshRate != domain.RefreshRateUnknown &&
		a.RefreshRate != b.RefreshRate {
		return false
	}

	return true
}

// FindFirstCompatible returns the first candidate matching either the current
// mode or one of the device modes. Candidates are checked in order; each one is
// tested against current before the device list. The bool is false when
// nothing matches.
func FindFirstCompatible(candidates []domain.DisplayMode, current domain.DisplayMode, deviceModes []domain.DisplayMode) (domain.DisplayMode, bool) {
	for _, mode := range candidates {
		if ModesMatch(mode, current) {
			return mode, true
		}

		for _, supported := range deviceModes {
			if ModesMatch(mode, supported) {
				return mode, true
			}
		}
	}
	return domain.DisplayMode{}, false
}
