package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/dreamware/tjsocial/internal/feed"
	"github.com/dreamware/tjsocial/internal/interaction"
)

type toggleCommand struct {
	name    string
	kind    interaction.Kind
	counted bool
	store   func(*feed.Paginator) interaction.Store
}

var (
	likeCommand = toggleCommand{
		name:    "like",
		kind:    interaction.Like,
		counted: true,
		store:   func(p *feed.Paginator) interaction.Store { return p.Likes() },
	}
	bookmarkCommand = toggleCommand{
		name:  "bookmark",
		kind:  interaction.Bookmark,
		store: func(p *feed.Paginator) interaction.Store { return p.Bookmarks() },
	}
)

func (a *app) feed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	fs.SetOutput(a.out)
	userID := fs.String("user", "", "Show this user's posts")
	mine := fs.Bool("mine", false, "Show your own posts (needs sign-in)")
	sortKey := fs.String("sort", a.cfg.Feed.Sort, "Sort key")
	pages := fs.Int("pages", 1, "Pages to load")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID != "" && *mine {
		return errors.New("feed: -user and -mine are exclusive")
	}
	key, err := feed.ParseSortKey(*sortKey)
	if err != nil {
		return err
	}
	if err := a.signIn(ctx, *mine); err != nil {
		return err
	}

	fetcher, name := a.client.HomeFeed(), "home"
	switch {
	case *mine:
		fetcher, name = a.client.MineFeed(), "mine"
	case *userID != "":
		fetcher, name = a.client.UserFeed(*userID), "user"
	}
	p := feed.NewPaginator(feed.Config{Fetcher: fetcher, Notifier: a.notifier, Logger: a.logger, Name: name})
	if err := loadPages(ctx, p, *pages, nil); err != nil {
		return err
	}

	printFeed(a.out, key, p.View(key), p.Snapshot().Exhausted, a.now())
	return nil
}

// loadPages reveals up to n pages, stopping early once the feed is
// exhausted or found reports true.
func loadPages(ctx context.Context, p *feed.Paginator, n int, found func() bool) error {
	for range n {
		if p.Snapshot().Exhausted || (found != nil && found()) {
			return nil
		}
		if _, err := p.TriggerOnVisible(ctx, p.ArmedItemID()); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) toggle(ctx context.Context, c toggleCommand, args []string) error {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	pages := fs.Int("pages", 3, "Home feed pages to search for the post")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tjsocial %s POST_ID", c.name)
	}
	id := fs.Arg(0)
	if err := a.signIn(ctx, true); err != nil {
		return err
	}

	p := feed.NewPaginator(feed.Config{Fetcher: a.client.HomeFeed(), Notifier: a.notifier, Logger: a.logger, Name: "home"})
	found := func() bool {
		_, ok := p.Item(id)
		return ok
	}
	if err := loadPages(ctx, p, *pages, found); err != nil {
		return err
	}
	if !found() {
		return fmt.Errorf("%s: post %s is not in the first %d pages of the feed", c.name, id, *pages)
	}

	t := interaction.New(interaction.Config{
		Store:    c.store(p),
		Remote:   a.remote(c.kind),
		Notifier: a.notifier,
		Logger:   a.logger,
		Kind:     c.kind,
		Counted:  c.counted,
	})
	if err := t.Toggle(ctx, id); err != nil {
		return err
	}
	item, _ := p.Item(id)
	fmt.Fprint(a.out, formatItem(item, a.now()))
	return nil
}

func (a *app) remote(kind interaction.Kind) interaction.Remote {
	switch kind {
	case interaction.Bookmark:
		return a.client.ToggleBookmark
	case interaction.Follow:
		return a.client.ToggleFollow
	default:
		return a.client.ToggleLike
	}
}

// follow toggles a follow. The current state is not known up front, so the
// prediction assumes "not following" and the server's answer corrects it.
func (a *app) follow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: tjsocial follow USER_ID")
	}
	id := args[0]
	if err := a.signIn(ctx, true); err != nil {
		return err
	}

	store := interaction.NewMemoryStore()
	store.Put(id, false, 0)
	t := interaction.New(interaction.Config{
		Store:    store,
		Remote:   a.remote(interaction.Follow),
		Notifier: a.notifier,
		Logger:   a.logger,
		Kind:     interaction.Follow,
	})
	if err := t.Toggle(ctx, id); err != nil {
		return err
	}
	following, _, _ := store.Lookup(id)
	fmt.Fprintf(a.out, "following %s: %t\n", id, following)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", a.g.email, "Email")
	password := fs.String("password", a.g.password, "Password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var err error
	if *email == "" {
		if *email, err = a.in.ask("Email"); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.in.ask("Password"); err != nil {
			return err
		}
	}

	u, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, formatUser(u))
	return nil
}

// whoami asks the server who the session belongs to.
func (a *app) whoami(ctx context.Context) error {
	if err := a.signIn(ctx, false); err != nil {
		return err
	}
	u, ok, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprint(a.out, formatUser(u))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.signIn(ctx, true); err != nil {
		return err
	}
	return a.session.Logout(ctx)
}
