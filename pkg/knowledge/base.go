package knowledge

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const globalUser = "global"

var (
	userMarkerPattern   = regexp.MustCompile(`(?i)<!--\s*USER:\s*([^\s>]+?)\s*-->`)
	enrolledLinePattern = regexp.MustCompile(`(?i)Enrolled Courses:\s*([A-Z]{4}\d{4}(?:\s*,\s*[A-Z]{4}\d{4})*)`)
	courseHeaderPattern = regexp.MustCompile(`(?i)##\s*Course:\s*([A-Z]{4}\d{4})`)
	courseListSeparator = regexp.MustCompile(`\s*,\s*`)
)

// Base is a markdown knowledge base split into per-user blocks. A block
// starts at an "<!-- USER:<id> -->" marker and runs until the next marker.
// The "global" block holds one "## Course: <CODE>" section per course.
type Base struct {
	text   string
	blocks map[string]string
}

// Load reads the knowledge base from disk.
func Load(path string) (*Base, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}
	return Parse(string(raw)), nil
}

// Parse indexes the user blocks of a knowledge base document. When an id
// appears twice the first block wins.
func Parse(text string) *Base {
	base := &Base{text: text, blocks: make(map[string]string)}
	markers := userMarkerPattern.FindAllStringSubmatchIndex(text, -1)
	for i, marker := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		id := strings.ToLower(text[marker[2]:marker[3]])
		if _, exists := base.blocks[id]; exists {
			continue
		}
		base.blocks[id] = strings.TrimSpace(text[marker[0]:end])
	}
	return base
}

// Len returns the size of the raw document in bytes.
func (b *Base) Len() int {
	return len(b.text)
}

// ContextFor returns the context a model should see for one user: the
// user's own block followed by the global sections of the courses the
// block lists under "Enrolled Courses:". Unknown or empty ids get the
// whole document.
func (b *Base) ContextFor(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return b.text
	}
	student, ok := b.blocks[strings.ToLower(userID)]
	if !ok || student == "" {
		return b.text
	}

	sections := make([]string, 0)
	for _, code := range EnrolledCourses(student) {
		if section := b.courseSection(code); section != "" {
			sections = append(sections, section)
		}
	}

	return "# Student Context\n" + student + "\n\n# Relevant Courses\n" + strings.Join(sections, "\n\n")
}

// EnrolledCourses parses the course codes listed on a block's
// "Enrolled Courses:" line.
func EnrolledCourses(block string) []string {
	match := enrolledLinePattern.FindStringSubmatch(block)
	if match == nil {
		return nil
	}
	codes := make([]string, 0)
	for _, code := range courseListSeparator.Split(match[1], -1) {
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func (b *Base) courseSection(code string) string {
	global := b.blocks[globalUser]
	headers := courseHeaderPattern.FindAllStringSubmatchIndex(global, -1)
	for i, header := range headers {
		if !strings.EqualFold(global[header[2]:header[3]], code) {
			continue
		}
		end := len(global)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		return strings.TrimSpace(global[header[0]:end])
	}
	return ""
}

// Truncate caps s at maxChars characters. A non-positive limit disables it.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars])
}
