// Command warden-consent is the terminal consent helper. The daemon spawns it
// with the write end of an anonymous pipe inherited as fd 3 and the prompt as
// JSON in WARDEN_CONSENT_PROMPT. It writes exactly one decision byte back;
// for reason-approval prompts an approval is followed by a length-prefixed
// justification. Exiting without writing counts as a denial on the daemon
// side, so every error path here simply exits.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Wikid82/warden/internal/consent"
	"github.com/Wikid82/warden/internal/models"
)

func main() {
	raw := os.Getenv("WARDEN_CONSENT_PROMPT")
	if raw == "" {
		log.Fatal("WARDEN_CONSENT_PROMPT is not set")
	}

	var prompt consent.Prompt
	if err := json.Unmarshal([]byte(raw), &prompt); err != nil {
		log.Fatalf("decode prompt: %v", err)
	}

	pipe := os.NewFile(3, "decision-pipe")
	if pipe == nil {
		log.Fatal("decision pipe (fd 3) not inherited")
	}
	defer pipe.Close()

	in := bufio.NewReader(os.Stdin)

	fmt.Printf("%s\\%s requests elevation of:\n", prompt.DomainName, prompt.AccountName)
	fmt.Printf("  %s", prompt.TargetPath)
	if len(prompt.TargetCommandLine) > 0 {
		fmt.Printf(" %s", strings.Join(prompt.TargetCommandLine, " "))
	}
	fmt.Println()

	approved := ask(in, "Approve? [y/N]: ")
	if !approved {
		writeByte(pipe, consent.DecisionByteDeny)
		return
	}

	if prompt.Kind == models.ElevationReasonApproval {
		fmt.Print("Justification: ")
		reason, err := in.ReadString('\n')
		if err != nil {
			// No justification, no approval.
			writeByte(pipe, consent.DecisionByteDeny)
			return
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			writeByte(pipe, consent.DecisionByteDeny)
			return
		}
		if len(reason) > 4096 {
			reason = reason[:4096]
		}

		writeByte(pipe, consent.DecisionByteApprove)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(reason)))
		pipe.Write(lenBuf[:])
		pipe.Write([]byte(reason))
		return
	}

	writeByte(pipe, consent.DecisionByteApprove)
}

func ask(in *bufio.Reader, question string) bool {
	fmt.Print(question)
	line, err := in.ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

func writeByte(pipe *os.File, b byte) {
	if _, err := pipe.Write([]byte{b}); err != nil {
		log.Fatalf("write decision: %v", err)
	}
}
