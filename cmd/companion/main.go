package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/swiftyco/go-intra-client/api"
	"github.com/swiftyco/go-intra-client/auth"
	"github.com/swiftyco/go-intra-client/internal/config"
	"github.com/swiftyco/go-intra-client/profile"
	"github.com/swiftyco/go-intra-client/server"
	"github.com/swiftyco/go-intra-client/session/filerepo"
	"github.com/swiftyco/go-intra-client/token"
)

const usage = `usage: companion <command>

commands:
  login          authorize with the intranet and sign in
  me             show the signed-in user's profile
  user <login>   look up another user's profile
  status         show the current session state
  logout         clear the stored session
`

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	configureLogging(c)

	if len(os.Args) < 2 {
		fmt.Print(usage)
		return errors.New("missing command")
	}
	command := os.Args[1]

	controller, exchanger, client, err := wire(c)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := controller.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	switch command {
	case "login":
		return runLogin(ctx, c, controller, exchanger)
	case "me":
		return runMe(controller)
	case "user":
		if len(os.Args) < 3 {
			return errors.New("usage: companion user <login>")
		}
		return runUser(ctx, controller, client, os.Args[2])
	case "status":
		fmt.Println(controller.Status().State)
		return nil
	case "logout":
		return controller.SignOut()
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// wire connects the session store, the token exchanger, the request pipeline
// and the session controller. The pipeline reports session conditions back
// to the controller, which is created after it, so the handler late-binds.
func wire(c config.Config) (*auth.Controller, *token.Exchanger, *api.Client, error) {
	repo, err := filerepo.New(c.GetDataFolder())
	if err != nil {
		return nil, nil, nil, err
	}

	exchanger, err := token.NewExchanger(c, repo)
	if err != nil {
		return nil, nil, nil, err
	}

	var controller *auth.Controller
	client, err := api.NewClient(c, repo, exchanger,
		api.WithConditionHandler(func(cond api.Condition) {
			if controller != nil {
				controller.HandleCondition(cond)
			}
		}),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	controller, err = auth.NewController(repo, exchanger, client)
	if err != nil {
		return nil, nil, nil, err
	}
	return controller, exchanger, client, nil
}

func runLogin(ctx context.Context, c config.Config, controller *auth.Controller, exchanger *token.Exchanger) error {
	if controller.Status().State == auth.StateSignedIn {
		fmt.Println("already signed in; run 'companion logout' first to switch accounts")
		return nil
	}

	displayAppname(c.GetAppName())

	callback := server.NewCallbackServer(c.GetCallbackPort())
	if _, err := callback.Start(ctx); err != nil {
		return err
	}
	defer callback.Stop()

	state := token.NewState()
	fmt.Println("Open the following URL in your browser to authorize:")
	fmt.Println()
	fmt.Println("  " + exchanger.AuthorizationURL(state))
	fmt.Println()
	fmt.Println("Waiting for the redirect...")

	result, err := callback.Wait(ctx)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	if result.State != state {
		return errors.New("authorization response state mismatch")
	}

	if err := controller.SignIn(ctx, result.Code); err != nil {
		return err
	}
	return runMe(controller)
}

func runMe(controller *auth.Controller) error {
	status := controller.Status()
	if status.State != auth.StateSignedIn {
		return fmt.Errorf("not signed in (state: %s); run 'companion login'", status.State)
	}
	printUser(status.User)
	return nil
}

func runUser(ctx context.Context, controller *auth.Controller, client *api.Client, login string) error {
	if controller.Status().State != auth.StateSignedIn {
		return fmt.Errorf("not signed in; run 'companion login'")
	}

	user, err := client.UserByLogin(ctx, login)
	if err != nil {
		return err
	}
	printUser(user)
	return nil
}

func printUser(u *profile.User) {
	fmt.Printf("%s (%s)\n", u.DisplayName, u.Login)
	fmt.Printf("  email:      %s\n", u.Email)
	fmt.Printf("  wallet:     %d ₳\n", u.Wallet)
	fmt.Printf("  eval pts:   %d\n", u.CorrectionPoint)
	if level, ok := profile.MainCursusLevel(u); ok {
		fmt.Printf("  level:      %.2f\n", level)
	}

	if skills := profile.LatestSkills(u); len(skills) > 0 {
		fmt.Println("  skills:")
		for _, skill := range skills {
			fmt.Printf("    %-24s %.2f\n", skill.Name, skill.Level)
		}
	}

	groups := profile.GroupProjects(u, profile.MainCursusID)
	if len(groups) > 0 {
		fmt.Println("  projects:")
		for _, group := range groups {
			fmt.Printf("    %-24s %s\n", group.Project.Name, projectOutcome(group.ProjectUser))
			for _, child := range group.Children {
				fmt.Printf("      %-22s %s\n", child.Project.Name, projectOutcome(child))
			}
		}
	}

	if len(u.Achievements) > 0 {
		profile.SortAchievements(u.Achievements)
		fmt.Println("  achievements:")
		for _, a := range u.Achievements {
			fmt.Printf("    [%s] %s\n", a.Tier, a.Name)
		}
	}
}

func projectOutcome(pu profile.ProjectUser) string {
	if pu.FinalMark == nil {
		return strings.ReplaceAll(pu.Status, "_", " ")
	}
	return fmt.Sprintf("%d", *pu.FinalMark)
}

func configureLogging(c config.EnvConfig) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.GetEnv() == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
