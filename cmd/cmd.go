// Package cmd provides the gencraft CLI commands.
//
// Commands:
//   - chat: interactive conversation with streaming answers
//   - list: show the user's conversations
//   - delete: remove a conversation
//
// All commands handle SIGINT/SIGTERM via context cancellation; leaving a
// running chat never leaves a half-committed turn behind.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point for the gencraft CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "chat":
		return runChat(os.Args[2:])
	case "list":
		return runList()
	case "delete":
		return runDelete(os.Args[2:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("GenCraft - conversational AI in your terminal")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gencraft chat [id]     Open a conversation (new one on first message)")
	fmt.Println("  gencraft list          List your conversations")
	fmt.Println("  gencraft delete <id>   Delete a conversation")
	fmt.Println("  gencraft --version     Show version information")
	fmt.Println("  gencraft --help        Show this help")
	fmt.Println()
	fmt.Println("Chat commands:")
	fmt.Println("  /attach <file>   Stage a file for the next message")
	fmt.Println("  /discard         Drop the staged attachment")
	fmt.Println("  /quit            Leave the chat")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GEMINI_API_KEY   Gemini API key (required)")
	fmt.Println("  GENCRAFT_TOKEN   Bearer token for the GenCraft API (required)")
	fmt.Println("  GENCRAFT_API_URL Override the conversation store endpoint")
}
