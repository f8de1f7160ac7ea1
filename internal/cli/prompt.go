package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrAborted is returned when the operator declines the mainnet confirmation.
var ErrAborted = errors.New("aborted by user")

// PromptResult contains the result of a user prompt interaction.
type PromptResult struct {
	// Accepted is true if the user accepted the prompt (typed "y" or "yes").
	Accepted bool
	// Cancelled is true if reading the answer failed.
	Cancelled bool
}

// ConfirmMainnet asks the operator to confirm a pass that moves real funds.
//
// The prompt defaults to "No" when the user presses Enter without input.
// Valid inputs: "y" or "yes" in any case; anything else declines.
func ConfirmMainnet(writer io.Writer, reader io.Reader, passName string, transfers int) PromptResult {
	fmt.Fprintf(writer, "\nWarning: %s will send %d transfers on mainnet-beta.\n", passName, transfers)
	fmt.Fprint(writer, "? Continue? [y/N] ")

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return PromptResult{Cancelled: true}
		}
		// EOF without error (Ctrl+D) declines.
		return PromptResult{Accepted: false}
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return PromptResult{Accepted: true}
	default:
		return PromptResult{Accepted: false}
	}
}
