package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mmcdole/vidsync/internal/comments"
	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/library"
	"github.com/mmcdole/vidsync/internal/metadata"
	"github.com/mmcdole/vidsync/internal/tui"
	"github.com/mmcdole/vidsync/internal/tui/styles"
)

type commandFunc func(ctx context.Context, args []string, out io.Writer) error

const recommendedCount = 3

func (a *app) commands() map[string]commandFunc {
	return map[string]commandFunc{
		"browse":      a.browse,
		"list":        a.list,
		"show":        a.show,
		"search":      a.search,
		"categories":  a.categories,
		"courses":     a.courses,
		"create":      a.create,
		"edit":        a.edit,
		"comments":    a.listComments,
		"comment":     a.comment,
		"note":        a.note,
		"breadcrumbs": a.breadcrumbs,
		"play":        a.play,
	}
}

func (a *app) browse(ctx context.Context, _ []string, _ io.Writer) error {
	observer := tui.NewChannelObserver(16)
	unsubscribe := a.store.Subscribe(observer)
	defer unsubscribe()

	model := tui.NewModel(tui.Services{
		Library:  a.library,
		Queries:  a.queries,
		Comments: a.comments,
		Notes:    a.notes,
		Index:    a.builder,
		Crumbs:   a.crumbs,
		Observer: observer,
		Player:   a.launcher,
		Username: a.cfg.User.Username,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	a.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (a *app) list(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	userID := fs.String("user", "", "only this user's videos")
	category := fs.String("category", "", "filter by category")
	course := fs.String("course", "", "filter by course")
	slug := fs.String("slug", "", "filter by category or course slug")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var videos []domain.Video
	var err error
	if *userID != "" {
		videos, err = a.library.LoadUserVideos(ctx, *userID)
	} else {
		videos, err = a.library.LoadAllUsersVideos(ctx)
	}
	if err != nil {
		return err
	}

	ix := a.builder.Index()
	switch {
	case *category != "":
		videos = ix.VideosByCategory(*category)
	case *course != "":
		videos = ix.VideosByCourse(*course)
	case *slug != "":
		videos = ix.VideosBySlug(*slug)
	}

	if len(videos) == 0 {
		fmt.Fprintln(out, "No videos")
		return nil
	}
	fmt.Fprintln(out, videoTable(videos))
	return nil
}

func (a *app) show(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: vidsync show <id>")
	}
	id := args[0]

	// The full list feeds recommendations
	if _, err := a.library.LoadAllUsersVideos(ctx); err != nil {
		return err
	}

	v, err := a.library.LoadVideo(ctx, id)
	if err != nil {
		if library.IsTransportFailure(err) {
			return fmt.Errorf("backend unavailable: %w", err)
		}
		return err
	}
	if v == nil {
		return fmt.Errorf("video %s: %w", id, domain.ErrShapeMismatch)
	}

	author := v.UserID
	if u, ok := a.registry.ByID(v.UserID); ok {
		author = u.Name
	}

	fmt.Fprintln(out, styles.TitleStyle.Render(v.Title))
	fmt.Fprintf(out, "id:          %s\n", v.ID)
	fmt.Fprintf(out, "author:      %s\n", author)
	fmt.Fprintf(out, "created:     %s\n", v.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "comments:    %d\n", v.NumComments)
	fmt.Fprintf(out, "url:         %s\n", v.VideoURL)
	if len(v.Categories) > 0 {
		fmt.Fprintf(out, "categories:  %s\n", strings.Join(v.Categories, ", "))
	}
	if len(v.Courses) > 0 {
		fmt.Fprintf(out, "courses:     %s\n", strings.Join(v.Courses, ", "))
	}
	if v.Description != "" {
		fmt.Fprintf(out, "\n%s\n", v.Description)
	}
	if note := a.notes.Get(a.cfg.User.Username, v.ID); note != "" {
		fmt.Fprintf(out, "\nnote: %s\n", note)
	}

	if recs := a.builder.Index().Recommended(v.ID, recommendedCount); len(recs) > 0 {
		fmt.Fprintln(out, "\nrecommended:")
		for _, r := range recs {
			fmt.Fprintf(out, "  %s  %s\n", r.ID, r.Title)
		}
	}
	return nil
}

func (a *app) search(ctx context.Context, args []string, out io.Writer) error {
	q := strings.Join(args, " ")
	if strings.TrimSpace(q) == "" {
		return errors.New("usage: vidsync search <query>")
	}
	if _, err := a.library.LoadAllUsersVideos(ctx); err != nil {
		return err
	}

	ix := a.builder.Index()
	results := ix.Search(q)
	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", q)
		if s := ix.Suggest(q); len(s) > 0 {
			fmt.Fprintf(out, "Did you mean: %s\n", strings.Join(s, ", "))
		}
		return nil
	}

	group := ""
	for _, r := range results {
		if t := r.Type.String(); t != group {
			group = t
			fmt.Fprintln(out, styles.AccentStyle.Render(group))
		}
		fmt.Fprintf(out, "  %s  %s\n", r.Title, styles.DimStyle.Render(r.URL))
	}
	return nil
}

func (a *app) categories(ctx context.Context, _ []string, out io.Writer) error {
	if _, err := a.library.LoadAllUsersVideos(ctx); err != nil {
		return err
	}
	ix := a.builder.Index()
	for _, c := range ix.Categories() {
		fmt.Fprintf(out, "%s (%d)\n", c, len(ix.VideosByCategory(c)))
	}
	return nil
}

func (a *app) courses(ctx context.Context, _ []string, out io.Writer) error {
	if _, err := a.library.LoadAllUsersVideos(ctx); err != nil {
		return err
	}
	ix := a.builder.Index()
	for _, c := range ix.Courses() {
		fmt.Fprintf(out, "%s (%d)\n", c, len(ix.VideosByCourse(c)))
	}
	return nil
}

func (a *app) create(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	title := fs.String("title", "", "video title (required)")
	videoURL := fs.String("url", "", "video URL (required)")
	description := fs.String("description", "", "video description (required)")
	categories := fs.String("categories", "", `comma-separated categories, e.g. "Web Dev, AI"`)
	courses := fs.String("courses", "", "comma-separated courses")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := a.library.CreateVideo(ctx, library.CreateVideoInput{
		UserID:      a.actingUser().ID,
		Title:       *title,
		Description: *description,
		VideoURL:    *videoURL,
		Categories:  metadata.ParseList(*categories),
		Courses:     metadata.ParseList(*courses),
	})
	if err != nil {
		return err
	}

	if v.IsPending() {
		fmt.Fprintf(out, "Created %s (pending, the backend returned no id)\n", v.ID)
	} else {
		fmt.Fprintf(out, "Created %s\n", v.ID)
	}
	fmt.Fprintln(out, v.VideoURL)
	return nil
}

func (a *app) edit(ctx context.Context, args []string, out io.Writer) error {
	id, rest := leadingArg(args)
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	title := fs.String("title", "", "new title (required)")
	description := fs.String("description", "", "new description")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if id == "" {
		id = fs.Arg(0)
	}

	if err := a.library.EditVideo(ctx, library.EditVideoInput{
		VideoID:     id,
		Title:       *title,
		Description: *description,
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated %s\n", id)
	return nil
}

func (a *app) listComments(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: vidsync comments <id>")
	}
	list, err := a.comments.Load(ctx, args[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No comments yet")
		return nil
	}
	for _, c := range list {
		author := c.UserID
		if u, ok := a.registry.ByID(c.UserID); ok {
			author = u.Name
		}
		fmt.Fprintf(out, "%s: %s\n", author, c.Content)
	}
	return nil
}

func (a *app) comment(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: vidsync comment <id> <text>")
	}
	c, err := a.comments.Create(ctx, comments.CreateCommentInput{
		VideoID: args[0],
		UserID:  a.actingUser().ID,
		Content: strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}
	if c != nil && c.ID != "" {
		fmt.Fprintf(out, "Posted comment %s\n", c.ID)
	} else {
		fmt.Fprintln(out, "Posted comment")
	}
	return nil
}

func (a *app) note(_ context.Context, args []string, out io.Writer) error {
	id, rest := leadingArg(args)
	fs := flag.NewFlagSet("note", flag.ContinueOnError)
	clearNote := fs.Bool("clear", false, "remove the note")
	all := fs.Bool("list", false, "list videos with notes")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	username := a.cfg.User.Username

	if *all {
		for _, videoID := range a.notes.VideoIDs(username) {
			fmt.Fprintf(out, "%s: %s\n", videoID, a.notes.Get(username, videoID))
		}
		return nil
	}

	if id == "" {
		if id = fs.Arg(0); id == "" {
			return errors.New("usage: vidsync note <id> [text] | -clear <id> | -list")
		}
		rest = fs.Args()[1:]
	} else {
		rest = fs.Args()
	}

	switch {
	case *clearNote:
		if err := a.notes.Clear(username, id); err != nil {
			return err
		}
		fmt.Fprintln(out, "Note cleared")
	case len(rest) > 0:
		if err := a.notes.Set(username, id, strings.Join(rest, " ")); err != nil {
			return err
		}
		fmt.Fprintln(out, "Note saved")
	default:
		fmt.Fprintln(out, a.notes.Get(username, id))
	}
	return nil
}

func (a *app) play(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: vidsync play <id>")
	}
	v, err := a.library.LoadVideo(ctx, args[0])
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("video %s: %w", args[0], domain.ErrShapeMismatch)
	}
	if err := a.launcher.Launch(*v); err != nil {
		return err
	}
	fmt.Fprintf(out, "Playing %s\n", v.Title)
	return nil
}

func (a *app) breadcrumbs(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: vidsync breadcrumbs <path>")
	}
	if _, err := a.library.LoadAllUsersVideos(ctx); err != nil {
		return err
	}
	labels := []string{}
	for _, c := range a.crumbs.Resolve(args[0]) {
		labels = append(labels, c.Short())
	}
	fmt.Fprintln(out, strings.Join(labels, " > "))
	return nil
}

// leadingArg splits off a positional argument written before the flags
func leadingArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func videoTable(videos []domain.Video) string {
	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		id := v.ID
		if v.IsPending() {
			id += " (pending)"
		}
		rows = append(rows, []string{
			id,
			styles.Truncate(v.Title, 48),
			v.UserID,
			v.CreatedAt.Format("2006-01-02"),
			fmt.Sprint(v.NumComments),
			strings.Join(v.Categories, ", "),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.AccentStyle.Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("ID", "TITLE", "USER", "CREATED", "COMMENTS", "CATEGORIES").
		Rows(rows...).
		String()
}
