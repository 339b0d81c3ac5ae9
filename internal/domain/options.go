package domain

import "fmt"

// Audience selects who an answer is written for.
type Audience string

const (
	AudienceGeneral   Audience = "general"
	AudienceTechnical Audience = "technical"
	AudienceExecutive Audience = "executive"
	AudienceStudent   Audience = "student"
)

// Depth selects how long and detailed an answer is.
type Depth string

const (
	DepthBrief    Depth = "brief"
	DepthMedium   Depth = "medium"
	DepthDetailed Depth = "detailed"
)

// Tone selects the persona voice of an answer.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
	ToneAcademic     Tone = "academic"
)

// Defaults applied when a query leaves an option empty.
const (
	DefaultAudience = AudienceGeneral
	DefaultDepth    = DepthMedium
	DefaultTone     = ToneProfessional
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	switch a {
	case AudienceGeneral, AudienceTechnical, AudienceExecutive, AudienceStudent:
		return true
	}
	return false
}

// Valid reports whether d is a known depth.
func (d Depth) Valid() bool {
	switch d {
	case DepthBrief, DepthMedium, DepthDetailed:
		return true
	}
	return false
}

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneFriendly, ToneCasual, ToneAcademic:
		return true
	}
	return false
}

// ResponseOptions groups the knobs a caller can set on a chat query.
type ResponseOptions struct {
	Audience Audience `json:"audience"`
	Depth    Depth    `json:"depth"`
	Tone     Tone     `json:"tone"`
}

// ParseResponseOptions fills empty values with defaults and rejects unknown ones.
func ParseResponseOptions(audience, depth, tone string) (ResponseOptions, error) {
	opts := ResponseOptions{
		Audience: Audience(audience),
		Depth:    Depth(depth),
		Tone:     Tone(tone),
	}
	if opts.Audience == "" {
		opts.Audience = DefaultAudience
	}
	if opts.Depth == "" {
		opts.Depth = DefaultDepth
	}
	if opts.Tone == "" {
		opts.Tone = DefaultTone
	}

	if !opts.Audience.Valid() {
		return opts, NewValidationError("audience", fmt.Sprintf("unknown audience %q", audience), ErrInvalidOption)
	}
	if !opts.Depth.Valid() {
		return opts, NewValidationError("depth", fmt.Sprintf("unknown depth %q", depth), ErrInvalidOption)
	}
	if !opts.Tone.Valid() {
		return opts, NewValidationError("tone", fmt.Sprintf("unknown tone %q", tone), ErrInvalidOption)
	}
	return opts, nil
}
