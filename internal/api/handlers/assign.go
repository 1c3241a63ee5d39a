package handlers

import "encoding/json"

// assign copies v into dest through JSON so uncached and cached reads
// produce the same shapes
func assign(dest, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
