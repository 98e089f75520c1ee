package alpm

import "os"

// dirSync calls fsync(2) on a directory so renames into it survive a
// crash.
func dirSync(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
