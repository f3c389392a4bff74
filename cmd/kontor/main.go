package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin"

	"kontor/internal/cli"
	"kontor/internal/log"
)

func main() {
	app := kingpin.New("kontor", "Monthly financial timelines for budget, credit and contact accounts.")
	app.HelpFlag.Short('h')
	envFile := app.Flag("env-file", "Environment file to load").Default(".env").String()

	cmdCategory := app.Command("category", "Manage categories")
	cmdCategoryAdd := cmdCategory.Command("add", "Create or rename a category")
	categoryNumber := cmdCategoryAdd.Flag("number", "Category number").Required().Int()
	categoryName := cmdCategoryAdd.Flag("name", "Category name").Required().String()

	cmdOwner := app.Command("owner", "Manage owners")
	cmdOwnerAdd := cmdOwner.Command("add", "Create an owner")
	ownerKind := cmdOwnerAdd.Flag("kind", "Owner kind").Required().Enum("budget", "credit", "contact")
	ownerName := cmdOwnerAdd.Flag("name", "Owner name").Required().String()
	ownerCategory := cmdOwnerAdd.Flag("category", "Category number").Required().Int()
	cmdOwnerList := cmdOwner.Command("list", "List owners")

	cmdImport := app.Command("import", "Import snapshots from CSV")
	importKind := cmdImport.Flag("kind", "Snapshot kind").Required().Enum("budget", "credit")
	importFile := cmdImport.Flag("file", "CSV file").Required().ExistingFile()

	cmdTimeline := app.Command("timeline", "Export the populated timeline of one owner")
	timelineOwner := cmdTimeline.Flag("owner", "Owner ID").Required().Int64()
	timelineDate := cmdTimeline.Flag("date", "Status date (YYYY-MM-DD, default today)").String()
	timelineFormat := cmdTimeline.Flag("format", "Output format").Default("csv").Enum("csv", "md")

	cmdTotals := app.Command("totals", "Export category totals")
	totalsDate := cmdTotals.Flag("date", "Status date (YYYY-MM-DD, default today)").String()
	totalsFormat := cmdTotals.Flag("format", "Output format").Default("md").Enum("md", "xlsx")
	totalsOut := cmdTotals.Flag("out", "Output file (default stdout)").String()
	totalsLang := cmdTotals.Flag("lang", "Language for number formatting").Default("en").String()

	cmdRequest := app.Command("request", "Ask the worker to recalculate a report")
	requestDate := cmdRequest.Flag("date", "Status date (YYYY-MM-DD, default today)").String()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	cli.LoadEnvFile(*envFile)
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stderr).WithComponent(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	r := &runner{
		repo:    repo,
		reports: cli.NewReportService(logger, cfg, repo),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  logger,
		now:     time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var err error
	switch cmd {
	case cmdCategoryAdd.FullCommand():
		err = r.addCategory(ctx, *categoryNumber, *categoryName)
	case cmdOwnerAdd.FullCommand():
		err = r.addOwner(ctx, *ownerKind, *ownerName, *ownerCategory)
	case cmdOwnerList.FullCommand():
		err = r.listOwners(ctx)
	case cmdImport.FullCommand():
		err = r.importFile(ctx, *importKind, *importFile)
	case cmdTimeline.FullCommand():
		err = r.timeline(ctx, *timelineOwner, *timelineDate, *timelineFormat)
	case cmdTotals.FullCommand():
		err = r.totals(ctx, *totalsDate, *totalsFormat, *totalsOut, *totalsLang)
	case cmdRequest.FullCommand():
		client := cli.InitAMQP(logger, cfg)
		if client != nil {
			defer client.Close()
			err = r.request(ctx, client, *requestDate)
		} else {
			err = errMessagingDisabled
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "kontor: %v\n", err)
		repo.Close()
		os.Exit(1)
	}
}
