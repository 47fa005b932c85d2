package droidbot

import (
	"encoding/json"
	"fmt"
	"os"
)

// AppInfo is the subset of droidbot's app.json needed to relaunch the app.
type AppInfo struct {
	Package      string `json:"package"`
	MainActivity string `json:"main_activity"`
}

// Component returns the explicit activity component for "am start -n".
// Droidbot records the activity name relative to the package.
func (a AppInfo) Component() string {
	return fmt.Sprintf("%s/%s.%s", a.Package, a.Package, a.MainActivity)
}

func defaultAppInfo() AppInfo {
	return AppInfo{Package: "com.example.app", MainActivity: "MainActivity"}
}

// LoadAppInfo reads app.json from path. A missing or corrupt file yields
// placeholder app info rather than an error, so perturbation can keep
// running; the error is returned alongside for logging.
func LoadAppInfo(path string) (AppInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultAppInfo(), err
	}
	var info AppInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return defaultAppInfo(), err
	}
	if info.Package == "" || info.MainActivity == "" {
		return defaultAppInfo(), fmt.Errorf("droidbot: incomplete app info in %s", path)
	}
	return info, nil
}
