// Package shell is the numbered console menu in front of the workflows.
package shell

import (
	"context"
	"errors"
	"io"

	"github.com/Emyrk/google-workspace-admin/wsadmin"
)

// Workflows are the operations reachable from the user management menu.
// *wsadmin.Manager implements it.
type Workflows interface {
	ListAllUsers(ctx context.Context) error
	CreateUser(ctx context.Context) error
	BulkCreateUsers(ctx context.Context) (*wsadmin.BatchReport, error)
	DeleteUser(ctx context.Context) error
	BulkDelete(ctx context.Context) (*wsadmin.BatchReport, error)
}

var _ Workflows = (*wsadmin.Manager)(nil)

// Run shows the main menu until the operator exits, input ends or ctx is
// cancelled. Workflow errors are already reported by the workflows and never
// end the loop.
func Run(ctx context.Context, w Workflows, console *wsadmin.Console) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		console.Println("\n      Main Menu:     ")
		console.Println("-----------------------")
		console.Println("1. User Management")
		console.Println("2. Run Script 2")
		console.Println("3. Exit")
		choice, err := console.PromptTrimmed("Enter choice: ")
		if err != nil {
			return endOfInput(err)
		}

		switch choice {
		case "1":
			exit, err := userMenu(ctx, w, console)
			if err != nil || exit {
				return err
			}
		case "2":
			// Reserved for future scripts.
		case "3":
			return nil
		default:
			console.Println("Invalid choice, please try again.")
		}
	}
}

// userMenu returns exit=true when the operator asked to leave the program.
func userMenu(ctx context.Context, w Workflows, console *wsadmin.Console) (exit bool, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return true, err
		}

		console.Println("\nUser Management Menu:")
		console.Println("-----------------------")
		console.Println("1. List all users")
		console.Println("2. Create a new user")
		console.Println("3. Bulk create users")
		console.Println("4. Delete a user")
		console.Println("5. Bulk delete users")
		console.Println("6. Back to main menu")
		console.Println("7. Exit Program")
		choice, err := console.PromptTrimmed("Enter choice: ")
		if err != nil {
			return true, endOfInput(err)
		}

		switch choice {
		case "1":
			_ = w.ListAllUsers(ctx)
		case "2":
			_ = w.CreateUser(ctx)
		case "3":
			_, _ = w.BulkCreateUsers(ctx)
		case "4":
			_ = w.DeleteUser(ctx)
		case "5":
			_, _ = w.BulkDelete(ctx)
		case "6":
			return false, nil
		case "7":
			return true, nil
		default:
			console.Println("Invalid choice, please try again.")
		}
	}
}

// endOfInput treats a closed stdin as a normal exit.
func endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
