package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a finding.
type Severity uint8

const (
	SevInfo Severity = iota
	SevMinor
	SevMajor
	// SevCritical is for security findings that should fail a build.
	SevCritical
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevMinor:
		return "MINOR"
	case SevMajor:
		return "MAJOR"
	case SevCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// ParseSeverity accepts the names produced by String in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SevInfo, nil
	case "MINOR":
		return SevMinor, nil
	case "MAJOR":
		return SevMajor, nil
	case "CRITICAL":
		return SevCritical, nil
	}
	return SevInfo, fmt.Errorf("unknown severity %q (want info, minor, major or critical)", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText lets config files carry severities as plain strings.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
