package client

import (
	"fmt"
	"regexp"
)

// ExtractID returns the named group of re matched against resourceLink.
func ExtractID(re *regexp.Regexp, group, resourceLink string) (string, error) {
	m := re.FindStringSubmatch(resourceLink)
	if m == nil {
		return "", fmt.Errorf("resource link does not match %s: %s", re, resourceLink)
	}
	i := re.SubexpIndex(group)
	if i < 0 {
		return "", fmt.Errorf("regexp has no %q group: %s", group, re)
	}
	if m[i] == "" {
		return "", fmt.Errorf("empty %s in resource link: %s", group, resourceLink)
	}
	return m[i], nil
}
