package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/guard"
)

type command struct {
	name        string
	usage       string
	longRunning bool
	run         func(ctx context.Context, env *environment, args []string) error
}

var errUsage = errors.New("wrong number of arguments")

var commands = []command{
	{name: "status", usage: "show the current session", run: cmdStatus},
	{name: "sign-in", usage: "<email> <password>", run: cmdSignIn},
	{name: "sign-up", usage: "<email> <password> <name>", run: cmdSignUp},
	{name: "sign-out", usage: "end the session", run: cmdSignOut},
	{name: "reset-request", usage: "<email>", run: cmdResetRequest},
	{name: "reset-confirm", usage: "<token> <new-password>", run: cmdResetConfirm},
	{name: "verify-email", usage: "<token>", run: cmdVerifyEmail},
	{name: "send-code", usage: "<phone>", run: cmdSendCode},
	{name: "verify-phone", usage: "<phone> <code>", run: cmdVerifyPhone},
	{name: "link", usage: "<provider>", run: cmdLink},
	{name: "profile", usage: "[-name N] [-email E] [-avatar URL]", run: cmdProfile},
	{name: "2fa", usage: "enable | disable | verify <code>", run: cmdTwoFactor},
	{name: "check", usage: "<route> [location]", run: cmdCheck},
	{name: "routes", usage: "list guarded routes", run: cmdRoutes},
	{name: "serve", usage: "[-addr host:port] serve guarded routes and metrics", longRunning: true, run: cmdServe},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printCommands(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.usage)
	}
	_ = tw.Flush()
}

func want(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d, got %d", errUsage, n, len(args))
	}
	return nil
}

func cmdStatus(_ context.Context, env *environment, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	printSession(env.stdout, env.manager.State())
	return nil
}

func printSession(w io.Writer, st authsession.State) {
	if !st.IsAuthenticated() {
		fmt.Fprintln(w, "signed out")
		return
	}
	u := st.Session.User
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "user\t%s (%s)\n", u.Name, u.ID)
	fmt.Fprintf(tw, "email\t%s verified=%t\n", u.Email, u.EmailVerified)
	fmt.Fprintf(tw, "phone verified\t%t\n", u.PhoneVerified)
	fmt.Fprintf(tw, "role\t%s\n", u.Role)
	fmt.Fprintf(tw, "expires\t%s\n", st.Session.Deadline().Format(time.RFC3339))
	_ = tw.Flush()
}

func cmdSignIn(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 2); err != nil {
		return err
	}
	return env.manager.SignIn(ctx, args[0], args[1])
}

func cmdSignUp(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 3); err != nil {
		return err
	}
	return env.manager.SignUp(ctx, args[0], args[1], args[2])
}

func cmdSignOut(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	return env.manager.SignOut(ctx)
}

func cmdResetRequest(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 1); err != nil {
		return err
	}
	return env.manager.SendPasswordResetEmail(ctx, args[0])
}

func cmdResetConfirm(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 2); err != nil {
		return err
	}
	return env.manager.ResetPassword(ctx, args[0], args[1])
}

func cmdVerifyEmail(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 1); err != nil {
		return err
	}
	return env.manager.VerifyEmail(ctx, args[0])
}

func cmdSendCode(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 1); err != nil {
		return err
	}
	return env.manager.SendVerificationCode(ctx, args[0])
}

func cmdVerifyPhone(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 2); err != nil {
		return err
	}
	return env.manager.VerifyPhone(ctx, args[0], args[1])
}

func cmdLink(ctx context.Context, env *environment, args []string) error {
	if err := want(args, 1); err != nil {
		return err
	}
	return env.manager.LinkSocialAccount(ctx, args[0])
}

func cmdProfile(ctx context.Context, env *environment, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	avatar := fs.String("avatar", "", "avatar URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var update authsession.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			update.Name = name
		case "email":
			update.Email = email
		case "avatar":
			update.Avatar = avatar
		}
	})
	return env.manager.UpdateProfile(ctx, update)
}

func cmdTwoFactor(ctx context.Context, env *environment, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: want enable, disable or verify <code>", errUsage)
	}
	switch args[0] {
	case "enable":
		return env.manager.EnableTwoFactor(ctx)
	case "disable":
		return env.manager.DisableTwoFactor(ctx)
	case "verify":
		if err := want(args[1:], 1); err != nil {
			return err
		}
		return env.manager.VerifyTwoFactor(ctx, args[1])
	}
	return fmt.Errorf("%w: unknown 2fa action %q", errUsage, args[0])
}

func cmdCheck(_ context.Context, env *environment, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: want <route> [location]", errUsage)
	}
	location := args[0]
	if len(args) == 2 {
		location = args[1]
	}

	d := guardFor(env).Check(args[0], location)
	if target := d.RedirectURL(); target != "" {
		fmt.Fprintf(env.stdout, "%s -> %s\n", d.Status, target)
		return nil
	}
	fmt.Fprintln(env.stdout, d.Status)
	return nil
}

func cmdRoutes(_ context.Context, env *environment, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	routes := guard.DefaultRoutes()
	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	for _, p := range routes.Patterns() {
		fmt.Fprintf(tw, "%s\t%s\n", p, routes.Policy(p))
	}
	_ = tw.Flush()
	return nil
}
