package core

// ComposeEnv merges environment layers, lowest precedence first: keys in
// a later layer overwrite earlier ones, keys absent from every layer are
// simply not set. The inputs are never mutated and every call returns a
// fresh map, so concurrent jobs cannot observe each other's overlays.
func ComposeEnv(layers ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
