package staking

// MaxLevel is the highest level a user can be promoted to.
const MaxLevel uint8 = 5

// LevelBonusBps maps a user level to its accelerated-release bonus.
// Unknown levels earn nothing.
func LevelBonusBps(level uint8) uint64 {
	switch level {
	case 1:
		return 500
	case 2:
		return 1000
	case 3:
		return 1500
	case 4:
		return 2000
	case 5:
		return 2500
	default:
		return 0
	}
}
