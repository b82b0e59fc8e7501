package generate

import (
	"errors"
	"testing"
)

func TestKnobsValidateAcceptsAutoAndEmpty(t *testing.T) {
	if err := (Knobs{}).Validate(); err != nil {
		t.Errorf("empty knobs should validate, got %v", err)
	}
	knobs := Knobs{
		HookType: "auto",
		Persona:  "auto",
		Tone:     "auto",
		Goal:     "auto",
		Length:   "auto",
		Ending:   "auto",
	}
	if err := knobs.Validate(); err != nil {
		t.Errorf("auto knobs should validate, got %v", err)
	}
}

func TestKnobsValidateAcceptsCatalogMembers(t *testing.T) {
	knobs := Knobs{
		HookType: "the-hot-take",
		Persona:  "the-expert",
		Tone:     "direct",
		Goal:     "authority",
		Length:   "short",
		Ending:   "mic-drop",
	}
	if err := knobs.Validate(); err != nil {
		t.Errorf("catalog knobs should validate, got %v", err)
	}
}

func TestKnobsValidateRejectsUnknownOption(t *testing.T) {
	err := (Knobs{Tone: "sarcastic-villain"}).Validate()
	if !errors.Is(err, ErrInvalidOption) {
		t.Errorf("Validate() = %v, want ErrInvalidOption", err)
	}
}

func TestKnobsNormalizeDefaultsToAuto(t *testing.T) {
	n := (Knobs{Persona: "the-founder"}).Normalize()
	if n.Persona != "the-founder" {
		t.Errorf("Persona = %q", n.Persona)
	}
	if n.Tone != "auto" || n.HookType != "auto" || n.Ending != "auto" {
		t.Errorf("empty knobs should normalize to auto, got %+v", n)
	}
}

func TestSettingsCatalogEveryAxisHasAuto(t *testing.T) {
	catalog := SettingsCatalog()
	if len(catalog) != 6 {
		t.Fatalf("catalog has %d axes, want 6", len(catalog))
	}
	for _, set := range catalog {
		found := false
		for _, opt := range set.Options {
			if opt.ID == "auto" {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("axis %s has no auto option", set.Axis)
		}
	}
}

func TestOptionLabel(t *testing.T) {
	if got := OptionLabel(AxisHookType, "the-hot-take"); got != "The Hot Take" {
		t.Errorf("OptionLabel = %q", got)
	}
	if got := OptionLabel(AxisHookType, "missing"); got != "missing" {
		t.Errorf("unknown option should echo the id, got %q", got)
	}
}

func TestKnobsSummary(t *testing.T) {
	got := (Knobs{Persona: "the-expert", Tone: "direct"}).Summary()
	want := "hook_type=auto, persona=the-expert, tone=direct, goal=auto, length=auto, ending=auto"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
