package config

// Rig presets for common capture layouts. Each is a full grid definition;
// the rest of the config keeps its defaults.
var Presets = map[string]*Config{
	// full360: the original three-row full sweep.
	"full360": {
		Tilts: []int{-30, 0, 30},
		Yaws:  []int{0, 30, 60, 90, 120, 150, 180, 210, 240, 270, 300, 330},
	},
	// frontarc: forward-facing 180-degree arc, finer yaw steps.
	"frontarc": {
		Tilts: []int{-30, 0, 30},
		Yaws:  []int{270, 285, 300, 315, 330, 345, 0, 15, 30, 45, 60, 75, 90},
	},
	// singlerow: one level row, quick strip panorama.
	"singlerow": {
		Tilts: []int{0},
		Yaws:  []int{0, 30, 60, 90, 120, 150, 180, 210, 240, 270, 300, 330},
	},
}

func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := Default()
	cfg.Tilts = append([]int(nil), p.Tilts...)
	cfg.Yaws = append([]int(nil), p.Yaws...)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
