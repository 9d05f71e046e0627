//go:build windows

package workspace

import "fmt"

const askpassExt = ".cmd"

func askpassScript(secret string) string {
	return fmt.Sprintf("@echo off\r\necho %s\r\n", secret)
}
