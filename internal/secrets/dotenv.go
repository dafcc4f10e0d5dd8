package secrets

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/dohr-michael/moodstream/internal/config"
)

// envFile is a .env file held as raw lines, so that edits keep comments,
// ordering and blank lines.
type envFile struct {
	path  string
	lines []string
}

func readEnvFile(path string) (*envFile, error) {
	f := &envFile{path: path}
	fh, err := os.Open(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dotenv: %w", err)
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		f.lines = append(f.lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dotenv: %w", err)
	}
	return f, nil
}

// find returns the line index holding key, or -1.
func (f *envFile) find(key string) int {
	return slices.IndexFunc(f.lines, func(line string) bool {
		k, _, ok := config.ParseDotenvLine(line)
		return ok && k == key
	})
}

func (f *envFile) save() error {
	content := strings.Join(f.lines, "\n") + "\n"
	return os.WriteFile(f.path, []byte(content), 0o600)
}

// SetEntry writes or updates a KEY=VALUE line in a .env file. A new key is
// appended.
func SetEntry(path, key, value string) error {
	f, err := readEnvFile(path)
	if err != nil {
		return err
	}
	line := key + "=" + config.QuoteDotenvValue(value)
	if i := f.find(key); i >= 0 {
		f.lines[i] = line
	} else {
		f.lines = append(f.lines, line)
	}
	return f.save()
}

// GetEntry returns the value stored for key, or "" when absent.
func GetEntry(path, key string) (string, error) {
	f, err := readEnvFile(path)
	if err != nil {
		return "", err
	}
	i := f.find(key)
	if i < 0 {
		return "", nil
	}
	_, v, _ := config.ParseDotenvLine(f.lines[i])
	return v, nil
}

// RemoveEntry deletes key from the file. A missing file or key is not an error.
func RemoveEntry(path, key string) error {
	f, err := readEnvFile(path)
	if err != nil {
		return err
	}
	i := f.find(key)
	if i < 0 {
		return nil
	}
	f.lines = slices.Delete(f.lines, i, i+1)
	return f.save()
}
