package generate

import "fmt"

// Axis identifies one generation knob.
type Axis string

const (
	AxisHookType Axis = "hook_type"
	AxisPersona  Axis = "persona"
	AxisTone     Axis = "tone"
	AxisGoal     Axis = "goal"
	AxisLength   Axis = "length"
	AxisEnding   Axis = "ending"
)

// Option is one selectable value on an axis. Every axis carries an
// explicit "auto" option; "auto" means the provider picks.
type Option struct {
	ID   string
	Name string
}

// OptionSet is the closed set of options for one axis.
type OptionSet struct {
	Axis    Axis
	Name    string
	Options []Option
}

// Knobs are the caller-submitted generation settings. Empty values are
// treated as "auto".
type Knobs struct {
	HookType string
	Persona  string
	Tone     string
	Goal     string
	Length   string
	Ending   string
}

// settingsCatalog is the closed catalog of generation settings. Axes
// and option ids are stable identifiers persisted with generations, so
// entries must never be renamed, only added.
var settingsCatalog = []OptionSet{
	{
		Axis: AxisHookType,
		Name: "Hook Type",
		Options: []Option{
			{ID: "auto", Name: "Auto"},
			{ID: "the-hot-take", Name: "The Hot Take"},
			{ID: "hard-lesson", Name: "Hard Lesson"},
			{ID: "the-blueprint-how-to", Name: "The Blueprint (How-To)"},
			{ID: "zero-to-hero-transformation", Name: "Zero to Hero (Transformation)"},
			{ID: "cheat-sheet-listicle", Name: "Cheat Sheet (Listicle)"},
			{ID: "the-call-out-direct-audience", Name: "The Call-Out (Direct Audience)"},
			{ID: "shock-stat-statistic", Name: "Shock Stat (Statistic)"},
		},
	},
	{
		Axis: AxisPersona,
		Name: "Persona",
		Options: []Option{
			{ID: "auto", Name: "Auto"},
			{ID: "the-founder", Name: "The Founder"},
			{ID: "the-expert", Name: "The Expert"},
			{ID: "the-storyteller", Name: "The Storyteller"},
			{ID: "the-disruptor", Name: "The Disruptor"},
			{ID: "the-executive", Name: "The Executive"},
			{ID: "the-growth-hacker", Name: "The Growth Hacker"},
		},
	},
	{
		Axis: AxisTone,
		Name: "Tone",
		Options: []Option{
			{ID: "auto", Name: "Auto"},
			{ID: "professional", Name: "Professional"},
			{ID: "empathetic", Name: "Empathetic"},
			{ID: "direct", Name: "Direct"},
			{ID: "witty", Name: "Witty"},
			{ID: "inspirational", Name: "Inspirational"},
			{ID: "casual", Name: "Casual"},
		},
	},
	{
		Axis: AxisGoal,
		Name: "Goal",
		Options: []Option{
			{ID: "auto", Name: "Auto"},
			{ID: "viral-reach", Name: "Viral Reach"},
			{ID: "engagement", Name: "Engagement"},
			{ID: "authority", Name: "Authority"},
			{ID: "lead-gen", Name: "Lead Gen"},
			{ID: "personal-story", Name: "Personal Story"},
		},
	},
	{
		Axis: AxisLength,
		Name: "Length",
		Options: []Option{
			{ID: "auto", Name: "Auto"},
			{ID: "short", Name: "Short"},
			{ID: "medium", Name: "Medium"},
			{ID: "long", Name: "Long"},
		},
	},
	{
		Axis: AxisEnding,
		Name: "Ending",
		Options: []Option{
			{ID: "auto", Name: "Auto"},
			{ID: "mic-drop", Name: "Mic Drop"},
			{ID: "discussion", Name: "Discussion"},
			{ID: "the-hand-raiser", Name: "The Hand-Raiser"},
			{ID: "the-pitch", Name: "The Pitch"},
			{ID: "profile-funnel", Name: "Profile Funnel"},
		},
	},
}

var catalogByAxis = func() map[Axis]OptionSet {
	m := make(map[Axis]OptionSet, len(settingsCatalog))
	for _, set := range settingsCatalog {
		m[set.Axis] = set
	}
	return m
}()

// SettingsCatalog returns the full catalog in declaration order.
func SettingsCatalog() []OptionSet {
	out := make([]OptionSet, len(settingsCatalog))
	copy(out, settingsCatalog)
	return out
}

// OptionLabel resolves an option id to its display name, falling back
// to the id itself for unknown values.
func OptionLabel(axis Axis, optionID string) string {
	set, ok := catalogByAxis[axis]
	if !ok {
		return optionID
	}
	for _, opt := range set.Options {
		if opt.ID == optionID {
			return opt.Name
		}
	}
	return optionID
}

// Normalize maps empty knob values to "auto".
func (k Knobs) Normalize() Knobs {
	def := func(v string) string {
		if v == "" {
			return "auto"
		}
		return v
	}
	return Knobs{
		HookType: def(k.HookType),
		Persona:  def(k.Persona),
		Tone:     def(k.Tone),
		Goal:     def(k.Goal),
		Length:   def(k.Length),
		Ending:   def(k.Ending),
	}
}

// Validate rejects knob values outside the closed option sets.
func (k Knobs) Validate() error {
	checks := []struct {
		axis  Axis
		value string
	}{
		{AxisHookType, k.HookType},
		{AxisPersona, k.Persona},
		{AxisTone, k.Tone},
		{AxisGoal, k.Goal},
		{AxisLength, k.Length},
		{AxisEnding, k.Ending},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		if !validOption(c.axis, c.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidOption, c.axis, c.value)
		}
	}
	return nil
}

func validOption(axis Axis, optionID string) bool {
	set, ok := catalogByAxis[axis]
	if !ok {
		return false
	}
	for _, opt := range set.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Summary renders the knob summary persisted on the Generation row.
func (k Knobs) Summary() string {
	n := k.Normalize()
	return fmt.Sprintf("hook_type=%s, persona=%s, tone=%s, goal=%s, length=%s, ending=%s",
		n.HookType, n.Persona, n.Tone, n.Goal, n.Length, n.Ending)
}
