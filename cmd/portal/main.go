// Command portal is a terminal front end for the role portals. It signs in
// against the backend, keeps the local cache mirror warm, and exposes the
// everyday operations of each role as subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"internlink/internal/bus"
	"internlink/internal/cache"
	"internlink/internal/config"
	"internlink/internal/gateway"
	"internlink/internal/models"
	"internlink/internal/portal"
	"internlink/internal/session"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: portal <command> [args]

  login -email E -password P -role student|company|admin
  logout
  whoami

student:
  internships [-q query]
  applications
  apply -internship ID
  withdraw -application ID
  resume [-upload FILE | -delete]

company:
  postings
  post -title T [-location L] [-stipend S] [-duration D] [-tags a,b] [-deadline D] [-desc TEXT]
  unpost -internship ID
  decide -application ID -status "Selected"|"Rejected"|"In Review"
  overview
  verify -linkedin URL [-document FILE]
  watch

admin:
  users [-q query]
  moderate -internship ID -action approve|reject
  suspend|activate|remove -user ID
  verifications
  resolve -verification ID -action approve|reject
  analytics`)
	os.Exit(2)
}

type app struct {
	cfg    config.Config
	gw     *gateway.Client
	mirror *cache.Mirror
	bus    *bus.Bus
	sess   *session.Session
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	mirror, err := cache.Open(cfg.CachePath)
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}
	defer mirror.Close()

	a := &app{
		cfg:    cfg,
		gw:     gateway.New(cfg),
		mirror: mirror,
		bus:    bus.New(),
		sess:   session.New(mirror),
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]
	if err := a.run(ctx, cmd, args); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.sess.Logout()
		fmt.Println("signed out")
		return nil
	case "whoami":
		acct, ok := a.sess.Account()
		if !ok {
			fmt.Println("not signed in")
			return nil
		}
		fmt.Printf("%s <%s> (%s)\n", acct.FullName, acct.Email, acct.UserType)
		return nil

	case "internships", "applications", "apply", "withdraw", "resume":
		return a.studentCmd(ctx, cmd, args)
	case "postings", "post", "unpost", "decide", "overview", "verify", "watch":
		return a.companyCmd(ctx, cmd, args)
	case "users", "moderate", "suspend", "activate", "remove", "verifications", "resolve", "analytics":
		return a.adminCmd(ctx, cmd, args)
	default:
		usage()
		return nil
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	role := fs.String("role", "student", "student, company or admin")
	fs.Parse(args)

	acct, err := portal.Login(ctx, a.gw, a.sess, *email, *password, models.Role(*role))
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", acct.Email, acct.UserType)
	return nil
}

func (a *app) studentCmd(ctx context.Context, cmd string, args []string) error {
	s, err := portal.NewStudent(a.gw, a.mirror, a.bus, a.sess)
	if err != nil {
		return err
	}
	defer s.Close()

	switch cmd {
	case "internships":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		q := fs.String("q", "", "search query")
		fs.Parse(args)
		var items []models.Internship
		if *q == "" {
			if err := s.LoadInternships(ctx); err != nil {
				log.Printf("showing cached results: %v", err)
			}
			items = s.Internships()
		} else {
			var err error
			if items, err = s.Search(ctx, *q); err != nil {
				return err
			}
		}
		printInternships(items)
		return nil
	case "applications":
		if err := s.LoadApplications(ctx); err != nil {
			log.Printf("showing cached results: %v", err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tROLE\tCOMPANY\tSTATUS\tAPPLIED")
		for _, app := range s.Applications() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", app.ID, app.InternshipTitle, app.Company, app.Status, app.AppliedDate)
		}
		tw.Flush()
		counts := s.Stats()
		fmt.Printf("total %d: %d in review, %d selected, %d rejected\n",
			counts.Total, counts.InReview, counts.Selected, counts.Rejected)
		return nil
	case "apply":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("internship", "", "internship id")
		fs.Parse(args)
		if err := s.Refresh(ctx); err != nil {
			return err
		}
		app, err := s.Apply(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("applied: %s (%s)\n", app.InternshipTitle, app.ID)
		return nil
	case "withdraw":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("application", "", "application id")
		fs.Parse(args)
		if err := s.LoadApplications(ctx); err != nil {
			return err
		}
		if err := s.Withdraw(ctx, *id); err != nil {
			return err
		}
		fmt.Println("withdrawn")
		return nil
	case "resume":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		upload := fs.String("upload", "", "file to upload")
		del := fs.Bool("delete", false, "delete stored resume")
		fs.Parse(args)
		if *upload != "" {
			f, err := os.Open(*upload)
			if err != nil {
				return err
			}
			defer f.Close()
			meta, err := s.UploadResume(ctx, strings.TrimPrefix(*upload, "./"), f)
			if err != nil {
				return err
			}
			fmt.Printf("uploaded: %s\n", meta.URL)
			return nil
		}
		if *del {
			if err := s.DeleteResume(ctx); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		}
		meta, err := s.Resume(ctx)
		if err != nil {
			return err
		}
		if meta.URL == "" {
			fmt.Println("no resume on file")
			return nil
		}
		fmt.Printf("%s (%s)\n", meta.Filename, meta.URL)
		return nil
	}
	return nil
}

func (a *app) companyCmd(ctx context.Context, cmd string, args []string) error {
	c, err := portal.NewCompany(a.gw, a.mirror, a.bus, a.sess)
	if err != nil {
		return err
	}
	defer c.Close()

	switch cmd {
	case "postings":
		if err := c.LoadInternships(ctx); err != nil {
			log.Printf("showing cached results: %v", err)
		}
		printInternships(c.Internships())
		return nil
	case "post":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		title := fs.String("title", "", "role title")
		location := fs.String("location", "", "location")
		stipend := fs.String("stipend", "", "stipend")
		duration := fs.String("duration", "", "duration")
		tags := fs.String("tags", "", "comma-separated tags")
		deadline := fs.String("deadline", "", "application deadline")
		desc := fs.String("desc", "", "description")
		fs.Parse(args)
		draft := models.Internship{
			Title:       *title,
			Location:    *location,
			Stipend:     *stipend,
			Duration:    *duration,
			Deadline:    *deadline,
			Description: *desc,
		}
		if *tags != "" {
			draft.Tags = strings.Split(*tags, ",")
		}
		created, err := c.CreateInternship(ctx, draft)
		if err != nil {
			return err
		}
		fmt.Printf("posted %s (%s), awaiting approval\n", created.Title, created.ID)
		return nil
	case "unpost":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("internship", "", "internship id")
		fs.Parse(args)
		if err := c.LoadInternships(ctx); err != nil {
			return err
		}
		if err := c.DeleteInternship(ctx, *id); err != nil {
			return err
		}
		fmt.Println("removed")
		return nil
	case "decide":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("application", "", "application id")
		status := fs.String("status", "", "new status")
		fs.Parse(args)
		if err := c.LoadApplications(ctx); err != nil {
			return err
		}
		if err := c.SetApplicationStatus(ctx, *id, models.CanonicalApplicationStatus(*status)); err != nil {
			return err
		}
		fmt.Println("updated")
		return nil
	case "overview":
		ov, err := c.Overview(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d postings (%d active, %d pending), %d applications (%d selected, %d in review, %d rejected)\n",
			ov.Company, ov.TotalInternships, ov.ActiveInternships, ov.PendingInternships,
			ov.TotalApplications, ov.ApplicationStatusCounts.Selected,
			ov.ApplicationStatusCounts.InReview, ov.ApplicationStatusCounts.Rejected)
		return nil
	case "verify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		linkedin := fs.String("linkedin", "", "company LinkedIn URL")
		document := fs.String("document", "", "supporting document file")
		fs.Parse(args)
		if *document != "" {
			f, err := os.Open(*document)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := c.RequestVerification(ctx, *linkedin, *document, f); err != nil {
				return err
			}
		} else if err := c.RequestVerification(ctx, *linkedin, "", nil); err != nil {
			return err
		}
		fmt.Println("verification requested")
		return nil
	case "watch":
		// Block until the verification review lands, polling at the
		// configured refresh interval.
		status, err := c.RefreshVerification(ctx)
		if err != nil {
			return err
		}
		if status != models.VerificationPending {
			fmt.Printf("verification status: %s\n", status)
			return nil
		}
		fmt.Printf("verification status: %s, waiting for review...\n", status)
		done := make(chan models.VerificationStatus, 1)
		unsub := a.bus.Subscribe(bus.TopicVerifications, func() {
			if acct, ok := a.sess.Account(); ok && acct.VerificationStatus != models.VerificationPending {
				select {
				case done <- acct.VerificationStatus:
				default:
				}
			}
		})
		defer unsub()
		c.StartVerificationPoll(a.cfg.RefreshInterval())
		select {
		case status := <-done:
			fmt.Printf("verification status: %s\n", status)
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
	return nil
}

func (a *app) adminCmd(ctx context.Context, cmd string, args []string) error {
	adm, err := portal.NewAdmin(a.gw, a.mirror, a.bus, a.sess)
	if err != nil {
		return err
	}
	defer adm.Close()

	switch cmd {
	case "users":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		q := fs.String("q", "", "name or email query")
		fs.Parse(args)
		if err := adm.LoadUsers(ctx, *q); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSTATUS")
		for _, u := range adm.Users() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, u.Status)
		}
		return tw.Flush()
	case "suspend", "activate", "remove":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("user", "", "user id")
		fs.Parse(args)
		if err := adm.LoadUsers(ctx, ""); err != nil {
			return err
		}
		switch cmd {
		case "suspend":
			err = adm.SuspendUser(ctx, *id)
		case "activate":
			err = adm.ActivateUser(ctx, *id)
		case "remove":
			err = adm.DeleteUser(ctx, *id)
		}
		if err != nil {
			return err
		}
		fmt.Println("done")
		return nil
	case "moderate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("internship", "", "internship id")
		action := fs.String("action", "", "approve or reject")
		fs.Parse(args)
		if err := adm.LoadInternships(ctx); err != nil {
			return err
		}
		switch *action {
		case "approve":
			err = adm.ApproveInternship(ctx, *id)
		case "reject":
			err = adm.RejectInternship(ctx, *id)
		default:
			return fmt.Errorf("unknown action %q", *action)
		}
		if err != nil {
			return err
		}
		fmt.Println("done")
		return nil
	case "verifications":
		if err := adm.LoadVerifications(ctx); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCOMPANY\tREPRESENTATIVE\tEMAIL\tREQUESTED")
		for _, v := range adm.Verifications() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.ID, v.CompanyName, v.Representative, v.Email, v.RequestedAt)
		}
		return tw.Flush()
	case "resolve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("verification", "", "verification id")
		action := fs.String("action", "", "approve or reject")
		fs.Parse(args)
		if *action != "approve" && *action != "reject" {
			return fmt.Errorf("unknown action %q", *action)
		}
		if err := adm.LoadVerifications(ctx); err != nil {
			return err
		}
		if err := adm.ResolveVerification(ctx, *id, *action == "approve"); err != nil {
			return err
		}
		fmt.Println("done")
		return nil
	case "analytics":
		stats, err := adm.Analytics(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("users: %d (%d students, %d companies)\n", stats.TotalUsers, stats.ActiveStudents, stats.ActiveCompanies)
		fmt.Printf("internships: %d (%d pending approval)\n", stats.TotalInternships, stats.PendingApprovals)
		c := stats.ApplicationStatusCounts
		fmt.Printf("applications: %d (%d selected, %d in review, %d rejected)\n", c.Total, c.Selected, c.InReview, c.Rejected)
		for _, u := range stats.TopUniversities {
			fmt.Printf("  university %s: %d\n", u.University, u.Count)
		}
		for _, co := range stats.TopCompanies {
			fmt.Printf("  company %s: %d\n", co.Company, co.Count)
		}
		return nil
	}
	return nil
}

func printInternships(items []models.Internship) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tLOCATION\tSTIPEND\tSTATUS")
	for _, in := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", in.ID, in.Title, in.Company, in.Location, in.Stipend, in.Status)
	}
	tw.Flush()
}
