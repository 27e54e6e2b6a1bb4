package utils

import "strings"

// ContainsFold reports whether slice holds s, ignoring case.
func ContainsFold(slice []string, s string) bool {
	for _, v := range slice {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
