package taskstore

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/huynle/brain/internal/model"
)

var statusLinePattern = regexp.MustCompile(`(?m)^status:\s*.*$`)

// writeStatus rewrites the status field inside a task file's YAML front
// matter in place, the one field the supervisor itself ever mutates (spec
// §3 "Task: pending → (supervisor marks) in_progress"). The rest of the
// assistant's writes (completed, blocked, cancelled) happen out of process
// and are picked up on the next reindex.
func writeStatus(path string, status model.Status) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read task file: %w", err)
	}
	content := string(data)

	end := frontMatterEnd(content)
	if end < 0 {
		return fmt.Errorf("no front matter block in %s", path)
	}
	head, tail := content[:end], content[end:]

	line := "status: " + string(status)
	if statusLinePattern.MatchString(head) {
		head = statusLinePattern.ReplaceAllString(head, line)
	} else {
		closeAt := strings.LastIndex(head, "\n---")
		head = head[:closeAt+1] + line + "\n" + head[closeAt+1:]
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(head+tail), 0o644); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Body reads path and strips its leading YAML front-matter block, returning
// the free-form markdown body the section extractor addresses by H2/H3
// title (spec §6 "File format").
func Body(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read entry file: %w", err)
	}
	content := string(data)
	end := frontMatterEnd(content)
	if end < 0 {
		return content, nil
	}
	return content[end:], nil
}

// frontMatterEnd returns the byte offset just past the closing "---" of a
// leading YAML front-matter block, or -1 if content has none.
func frontMatterEnd(content string) int {
	if !strings.HasPrefix(content, "---\n") {
		return -1
	}
	closing := strings.Index(content[4:], "\n---")
	if closing < 0 {
		return -1
	}
	end := 4 + closing + len("\n---")
	if end < len(content) && content[end] == '\n' {
		end++
	}
	return end
}
