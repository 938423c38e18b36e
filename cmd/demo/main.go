// Демо прогоняет сценарий по всем экранам и печатает, что видит
// пользователь до и после ответа сервера.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/UkralStul/optimistic-updates/internal/config"
	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/metrics"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
	"github.com/UkralStul/optimistic-updates/internal/remote/client"
	"github.com/UkralStul/optimistic-updates/internal/screen"
	"github.com/UkralStul/optimistic-updates/internal/simulate"
	"github.com/UkralStul/optimistic-updates/internal/storage/inmemory"
	"go.uber.org/zap"
)

// services - всё, что нужно экранам демо.
type services interface {
	screen.PostService
	screen.CommentService
	screen.TodoService
	screen.ItemService
	screen.ChatService
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	remoteURL := flag.String("remote", "", "API server URL; empty runs the backend in-process")
	fast := flag.Bool("fast", false, "Skip simulated network delays (in-process only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	var svc services
	if *remoteURL != "" {
		svc = client.New(*remoteURL, client.WithLogger(logger.Named("client")))
	} else {
		store := inmemory.New()
		if _, err := remote.Seed(ctx, store, cfg.MockItems); err != nil {
			logger.Fatal("failed to fill mock data", zap.Error(err))
		}
		inj := simulate.NewInjector(cfg.Seed)
		if *fast {
			inj = inj.WithoutDelay()
		}
		svc = remote.NewBackend(store, cfg.Policies, remote.WithInjector(inj), remote.WithLogger(logger.Named("backend")))
	}

	collector := metrics.NewCollector("demo")
	notifier := optimistic.NotifierFunc(func(n optimistic.Notification) {
		fmt.Printf("  ! %s: %s (retry: %v)\n", n.Op, n.Message, n.Retryable)
	})
	opts := []optimistic.Option{
		optimistic.WithLogger(logger.Named("optimistic")),
		optimistic.WithNotifier(notifier),
		optimistic.WithObserver(collector),
	}

	d := &demo{svc: svc, opts: opts}
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"blog", d.blog},
		{"comments", d.comments},
		{"feed", d.feed},
		{"todos", d.todos},
		{"chat", d.chat},
		{"items", d.items},
	}
	for _, s := range steps {
		fmt.Printf("== %s\n", s.name)
		if err := s.run(ctx); err != nil {
			logger.Error("step failed", zap.String("step", s.name), zap.Error(err))
		}
	}
	printOutcomes(collector)
}

type demo struct {
	svc    services
	opts   []optimistic.Option
	wallID string
}

func (d *demo) blog(ctx context.Context) error {
	b := screen.NewBlog(d.svc, d.opts...)
	if err := b.Load(ctx); err != nil {
		return err
	}
	for _, p := range b.Posts() {
		if p.CommentsEnabled {
			d.wallID = p.ID
			break
		}
	}

	h, err := b.CreatePost(ctx, domain.NewPost{Title: "Новый пост", Content: "Появился сразу", AuthorID: "demo"})
	if err != nil {
		return err
	}
	printPosts("tentative", b.Posts(), b.Pending())
	_ = h.Wait(ctx)
	printPosts("settled", b.Posts(), b.Pending())

	if d.wallID == "" {
		return nil
	}
	if h, err = b.ToggleLike(ctx, d.wallID); err != nil {
		return err
	}
	_ = h.Wait(ctx)
	printPosts("after like", b.Posts(), b.Pending())
	return nil
}

func (d *demo) comments(ctx context.Context) error {
	if d.wallID == "" {
		return nil
	}
	c := screen.NewCommentThread(d.svc, d.wallID, "demo", d.opts...)
	if err := c.Load(ctx); err != nil {
		return err
	}
	if _, err := c.AddComment(ctx, "Оптимистичный комментарий"); err != nil {
		return err
	}
	if roots := c.Comments(); len(roots) > 1 {
		if _, err := c.Reply(ctx, roots[1].ID, "Ответ"); err != nil {
			return err
		}
		if _, err := c.ToggleLike(ctx, roots[1].ID); err != nil {
			return err
		}
	}
	printComments("tentative", c.Comments(), c.Pending())
	c.Wait()
	printComments("settled", c.Comments(), c.Pending())
	return nil
}

func (d *demo) feed(ctx context.Context) error {
	if d.wallID == "" {
		return nil
	}
	f := screen.NewFeed(d.svc, d.wallID, "demo", d.opts...)
	if err := f.Load(ctx); err != nil {
		return err
	}
	for !f.Exhausted() {
		h, ok := f.LoadMore(ctx)
		if !ok {
			break
		}
		if err := h.Wait(ctx); err != nil {
			return err
		}
	}
	fmt.Printf("  feed loaded: %d comments, state %s\n", len(f.Comments()), f.State())
	return nil
}

func (d *demo) todos(ctx context.Context) error {
	t := screen.NewTodos(d.svc, d.opts...)
	if err := t.Load(ctx); err != nil {
		return err
	}
	if _, err := t.Add(ctx, "Посмотреть демо"); err != nil {
		return err
	}
	if todos := t.Todos(); len(todos) > 1 {
		if _, err := t.Toggle(ctx, todos[1].ID); err != nil {
			return err
		}
	}
	printTodos("tentative", t.Todos(), t.Pending())
	t.Wait()
	printTodos("settled", t.Todos(), t.Pending())
	return nil
}

func (d *demo) chat(ctx context.Context) error {
	c := screen.NewChat(d.svc, d.opts...)
	if err := c.Load(ctx); err != nil {
		return err
	}
	for _, text := range []string{"Привет!", "Как дела?"} {
		if _, err := c.Send(ctx, text); err != nil {
			return err
		}
	}
	printMessages("tentative", c.Messages())
	c.Wait()
	for _, m := range c.Messages() {
		if m.Status != domain.StatusFailed {
			continue
		}
		if _, err := c.Resend(ctx, m.ID); err != nil {
			return err
		}
	}
	c.Wait()
	printMessages("settled", c.Messages())
	return nil
}

func (d *demo) items(ctx context.Context) error {
	it := screen.NewItems(d.svc, d.opts...)
	if err := it.Load(ctx); err != nil {
		return err
	}
	items := it.Items()
	if len(items) == 0 {
		return nil
	}
	title := items[0].Title + " (edited)"
	if _, err := it.Update(ctx, items[0].ID, domain.ItemPatch{Title: &title}); err != nil {
		return err
	}
	if _, err := it.ToggleLike(ctx, items[0].ID); err != nil {
		return err
	}
	fmt.Printf("  tentative: %q likes=%d pending=%v\n", it.Items()[0].Title, it.Items()[0].Likes, it.Pending())
	it.Wait()
	fmt.Printf("  settled:   %q likes=%d pending=%v total=%d\n", it.Items()[0].Title, it.Items()[0].Likes, it.Pending(), len(it.Items()))
	return nil
}

func printPosts(stage string, posts []domain.Post, pending bool) {
	fmt.Printf("  %s (pending=%v)\n", stage, pending)
	for _, p := range posts {
		fmt.Printf("    %s%s likes=%d\n", badge(p.Tentative()), p.Title, p.Likes)
	}
}

func printComments(stage string, comments []domain.Comment, pending bool) {
	fmt.Printf("  %s (pending=%v)\n", stage, pending)
	for _, c := range comments {
		fmt.Printf("    %s%s likes=%d\n", badge(c.Tentative()), c.Content, c.Likes)
		for _, r := range c.Replies {
			fmt.Printf("      %s%s\n", badge(r.Tentative()), r.Content)
		}
	}
}

func printTodos(stage string, todos []domain.Todo, pending bool) {
	fmt.Printf("  %s (pending=%v)\n", stage, pending)
	for _, t := range todos {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Printf("    [%s] %s%s\n", mark, badge(t.Tentative()), t.Text)
	}
}

func printMessages(stage string, msgs []domain.Message) {
	fmt.Printf("  %s\n", stage)
	for _, m := range msgs {
		fmt.Printf("    %-4s %-7s %s\n", m.Sender, m.Status, m.Text)
	}
}

func badge(tentative bool) string {
	if tentative {
		return "(sending) "
	}
	return ""
}

// printOutcomes печатает счётчики исходов операций из метрик.
func printOutcomes(c *metrics.Collector) {
	families, err := c.Registry().Gather()
	if err != nil {
		return
	}
	fmt.Println("== outcomes")
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "_operations_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			fmt.Printf("  %s %v\n", strings.Join(labels, " "), m.GetCounter().GetValue())
		}
	}
}
