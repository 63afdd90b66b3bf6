package cdr

import (
	"fmt"
	"strings"
)

// Tag maps a skill-name substring to a category.
type Tag struct {
	Match    string
	Category Category
}

// DefaultTags is the built-in priority order. The long tags come first so that
// "afterhours" or "noagent" skills are never caught by "ib", "ob" or "vm".
var DefaultTags = []Tag{
	{Match: "afterhours", Category: CategoryAfterHours},
	{Match: "noagent", Category: CategoryNoAgent},
	{Match: "ib", Category: CategoryInbound},
	{Match: "ob", Category: CategoryOutbound},
	{Match: "vm", Category: CategoryVoicemail},
}

// Classifier assigns a category from skill_name by first matching tag.
type Classifier struct {
	tags []Tag
}

// NewClassifier copies tags; matches are compared lowercased with spaces removed.
func NewClassifier(tags []Tag) (*Classifier, error) {
	c := &Classifier{tags: make([]Tag, 0, len(tags))}
	for i, t := range tags {
		m := squash(t.Match)
		if m == "" {
			return nil, fmt.Errorf("tag %d: empty match", i)
		}
		cat, ok := ParseCategory(string(t.Category))
		if !ok {
			return nil, fmt.Errorf("tag %q: unknown category %q", t.Match, t.Category)
		}
		c.tags = append(c.tags, Tag{Match: m, Category: cat})
	}
	return c, nil
}

// DefaultClassifier uses DefaultTags.
func DefaultClassifier() *Classifier {
	c, _ := NewClassifier(DefaultTags)
	return c
}

// Tags returns the normalized tag list in priority order.
func (c *Classifier) Tags() []Tag {
	return append([]Tag(nil), c.tags...)
}

// Classify never fails; unknown skills are CategoryOther.
func (c *Classifier) Classify(skill string) Category {
	s := squash(skill)
	for _, t := range c.tags {
		if strings.Contains(s, t.Match) {
			return t.Category
		}
	}
	return CategoryOther
}

func squash(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// Direction tells which phone field belongs to the company.
type Direction int

const (
	// DirectionIn: DNIS is ours, ANI is the customer's.
	DirectionIn Direction = iota
	// DirectionOut: ANI is ours, DNIS is the customer's.
	DirectionOut
)

// Direction is Out for outbound calls and In for everything else.
func (c Category) Direction() Direction {
	if c == CategoryOutbound {
		return DirectionOut
	}
	return DirectionIn
}

// Attribute splits ani/dnis into internal and external numbers for a category.
func Attribute(c Category, ani, dnis string) (internal, external string) {
	if c.Direction() == DirectionOut {
		return ani, dnis
	}
	return dnis, ani
}
