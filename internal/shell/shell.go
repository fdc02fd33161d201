// Package shell is a line-oriented terminal front-end for the console.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/patric-chuzhbe/adminconsole/internal/console"
	"github.com/patric-chuzhbe/adminconsole/internal/guard"
	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

const helpText = `Commands:
  login [username]   sign in
  logout             sign out (asks for confirmation)
  users              show the user list
  refresh            re-fetch the user list
  create             create a user
  delete <uuid>      delete a user (asks for confirmation)
  yes | no           answer the pending confirmation
  account            show my account
  menu               toggle the navigation menu
  go <path>          open a path
  dismiss            hide the current notification
  help               show this text
  quit               leave`

var errQuit = errors.New("quit")

type Shell struct {
	console *console.Console
	in      *bufio.Scanner
	out     io.Writer
	secret  func() (string, error)
}

type InitOption func(*Shell)

// WithSecretReader replaces the no-echo password prompt.
func WithSecretReader(read func() (string, error)) InitOption {
	return func(s *Shell) {
		s.secret = read
	}
}

func New(c *console.Console, in io.Reader, out io.Writer, optionsProto ...InitOption) *Shell {
	s := &Shell{
		console: c,
		in:      bufio.NewScanner(in),
		out:     out,
	}
	s.secret = s.defaultSecretReader(in)

	for _, protoOption := range optionsProto {
		protoOption(s)
	}

	return s
}

func (s *Shell) defaultSecretReader(in io.Reader) func() (string, error) {
	file, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return s.readLine
	}

	return func() (string, error) {
		bytePassword, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(s.out)
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}
}

func (s *Shell) readLine() (string, error) {
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Shell) ask(question string) (string, error) {
	fmt.Fprint(s.out, question)
	return s.readLine()
}

func (s *Shell) askSecret(question string) (string, error) {
	fmt.Fprint(s.out, question)
	return s.secret()
}

// Run restores the previous session and serves commands until quit or
// end of input.
func (s *Shell) Run(ctx context.Context) error {
	if err := s.console.Start(ctx); err != nil {
		return err
	}
	s.render()

	for {
		line, err := s.ask("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		err = s.execute(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			logger.Log.Debugln("command failed", "command", line, zap.Error(err))
			fmt.Fprintln(s.out, "Error:", err)
		}
		s.render()
	}
}

func (s *Shell) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "login":
		return s.login(ctx, args)

	case "logout":
		return s.console.RequestLogout()

	case "users":
		s.console.Navigate(ctx, guard.UsersPath)
		s.console.Wait()
		return nil

	case "refresh":
		return s.console.Refresh(ctx)

	case "create":
		return s.create(ctx)

	case "delete":
		if len(args) != 1 {
			return errors.New("usage: delete <uuid>")
		}
		return s.console.RequestDelete(args[0])

	case "yes":
		return s.console.Confirm(ctx)

	case "no":
		return s.console.Cancel()

	case "account":
		s.console.Navigate(ctx, guard.MyAccountPath)
		return nil

	case "menu":
		s.console.ToggleSidebar()
		return nil

	case "go":
		if len(args) != 1 {
			return errors.New("usage: go <path>")
		}
		s.console.Navigate(ctx, args[0])
		s.console.Wait()
		return nil

	case "dismiss":
		s.console.Dismiss()
		return nil

	case "help":
		fmt.Fprintln(s.out, helpText)
		return nil

	case "quit", "exit":
		return errQuit
	}

	return fmt.Errorf("unknown command %q, try help", command)
}

func (s *Shell) login(ctx context.Context, args []string) error {
	var username string
	var err error
	if len(args) > 0 {
		username = args[0]
	} else {
		username, err = s.ask("Username: ")
		if err != nil {
			return err
		}
	}

	password, err := s.askSecret("Password: ")
	if err != nil {
		return err
	}

	// The login form shows the failure itself.
	if err := s.console.SubmitLogin(ctx, username, password); err != nil {
		logger.Log.Debugln("Error calling the `s.console.SubmitLogin()`:", zap.Error(err))
	}
	s.console.Wait()

	return nil
}

func (s *Shell) create(ctx context.Context) error {
	if err := s.console.OpenCreate(); err != nil {
		return err
	}

	username, err := s.ask("Username: ")
	if err != nil {
		s.console.CloseCreate()
		return err
	}
	password, err := s.askSecret("Password: ")
	if err != nil {
		s.console.CloseCreate()
		return err
	}
	role, err := s.ask("Role (user/admin) [user]: ")
	if err != nil {
		s.console.CloseCreate()
		return err
	}
	if role == "" {
		role = string(models.RoleUser)
	}

	// Failures are shown as a notification.
	usr, err := s.console.SubmitCreate(ctx, username, password, models.Role(role))
	if err == nil {
		fmt.Fprintf(s.out, "Created %s (%s)\n", usr.Username, usr.ID)
	}

	return nil
}

func (s *Shell) render() {
	screen := s.console.Screen()

	if screen.Title != "" {
		fmt.Fprintf(s.out, "== %s ==\n", screen.Title)
	}
	if screen.SidebarOpen {
		for _, item := range screen.Menu {
			fmt.Fprintf(s.out, "  [%s] %s\n", item.Path, item.Text)
		}
	}
	if screen.Notification != "" {
		fmt.Fprintf(s.out, "! %s\n", screen.Notification)
	}

	switch screen.Path {
	case guard.LoginPath:
		fmt.Fprintln(s.out, "Please log in.")
		if screen.Login.Error != "" {
			fmt.Fprintln(s.out, screen.Login.Error)
		}

	case guard.UsersPath:
		s.renderUsers(screen)

	case guard.MyAccountPath:
		fmt.Fprintln(s.out, "My Account")
		fmt.Fprintf(s.out, "  Username: %s\n  Role:     %s\n", screen.Account.Username, screen.Account.Role)
	}

	if screen.Confirming {
		fmt.Fprintf(s.out, "? %s: %s [yes/no]\n", screen.Confirmation.Title, screen.Confirmation.Message)
	}
}

func (s *Shell) renderUsers(screen console.Screen) {
	switch {
	case screen.Users.Loading:
		fmt.Fprintln(s.out, "Loading users...")
		return
	case screen.Users.Err != nil:
		fmt.Fprintln(s.out, screen.Users.Err)
		return
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tUSERNAME\tROLE\tACTIONS")
	for _, row := range screen.Users.Rows {
		action := ""
		if row.Deletable {
			action = "delete"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.ID, row.Username, row.Role, action)
	}
	if err := w.Flush(); err != nil {
		logger.Log.Debugln("Error calling the `w.Flush()`:", zap.Error(err))
	}
}
