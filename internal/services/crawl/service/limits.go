package service

// tierLimits caps quality forks per tier when the target has no limit.
// Zero means unlimited
var tierLimits = map[int]int{0: 0, 1: 0, 2: 200, 3: 150, 4: 100, 5: 75, 6: 50, 7: 50, 8: 30}

// tierScale shrinks an explicit target limit for lower priority tiers
var tierScale = map[int]float64{0: 1, 1: 1, 2: .8, 3: .6, 4: .5, 5: .4, 6: .3, 7: .3, 8: .2}

const (
	defaultTierLimit = 30
	defaultTierScale = .2
	minScaledLimit   = 10
)

// ProgressiveLimit returns the fork limit for a target of tier whose own
// limit is base
func ProgressiveLimit(base, tier int) int {
	if base <= 0 {
		if l, ok := tierLimits[tier]; ok {
			return l
		}
		return defaultTierLimit
	}
	f, ok := tierScale[tier]
	if !ok {
		f = defaultTierScale
	}
	return max(minScaledLimit, int(float64(base)*f))
}
