package baseliner

import (
	"fmt"
	"strings"
)

// StderrPolicy decides what happens if a command writes to stderr.
type StderrPolicy string

const (
	// StderrIgnore prints stderr and carries on.
	StderrIgnore StderrPolicy = "ignore"
	// StderrFail treats any output on stderr as a failure of the machine.
	StderrFail StderrPolicy = "fail"
)

// FailurePolicy decides what happens if a machine fails.
type FailurePolicy string

const (
	// FailureAbort ends the whole run on the first failing machine.
	FailureAbort FailurePolicy = "abort"
	// FailureContinue skips the failing machine and moves on to the next one.
	FailureContinue FailurePolicy = "continue"
)

var (
	// StderrPolicies is a list of the available stderr policies.
	StderrPolicies = []StderrPolicy{StderrIgnore, StderrFail}
	// FailurePolicies is a list of the available failure policies.
	FailurePolicies = []FailurePolicy{FailureAbort, FailureContinue}
)

// ParseStderrPolicy validates the name of a stderr policy.
func ParseStderrPolicy(name string) (StderrPolicy, error) {
	for _, policy := range StderrPolicies {
		if string(policy) == name {
			return policy, nil
		}
	}
	return "", fmt.Errorf("unsupported stderr policy %q, must be one of: %s", name, join(StderrPolicies))
}

// ParseFailurePolicy validates the name of a failure policy.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	for _, policy := range FailurePolicies {
		if string(policy) == name {
			return policy, nil
		}
	}
	return "", fmt.Errorf("unsupported failure policy %q, must be one of: %s", name, join(FailurePolicies))
}

func join[T ~string](values []T) string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}
