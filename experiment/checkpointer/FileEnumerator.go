package checkpointer

import "fmt"

// sampleEnumerator names files by a sample count
type sampleEnumerator struct {
	name      string
	extension string
}

// filename returns the name of the file for a sample count
func (f sampleEnumerator) filename(samples int) string {
	return fmt.Sprintf("%v-%v%v", f.name, samples, f.extension)
}

// SampleEnumerator returns a function which returns filenames with a
// sample count suffix, e.g. model-400.ckpt. The filename parameter is
// the full filename with its path, while the extension parameter
// determines the file extension.
func SampleEnumerator(filename, extension string) func(int) string {
	return sampleEnumerator{name: filename, extension: extension}.filename
}

// Fixed returns a function which always returns filename
func Fixed(filename string) func(int) string {
	return func(int) string {
		return filename
	}
}
