package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/dbdiff/internal/core"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage database projects",
	Long:  "Commands for registering the databases dbdiff takes snapshots of.",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Run:   runProjectList,
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a database",
	Long: `Register a database as a new project.

Examples:
  dbdiff project add shop --host 127.0.0.1 --port 3306 --user root --schema shop
  dbdiff project add local --rdbms sqlite --schema ./app.db`,
	Args: cobra.ExactArgs(1),
	Run:  runProjectAdd,
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <project>",
	Short: "Change a project's connection settings",
	Args:  cobra.ExactArgs(1),
	Run:   runProjectUpdate,
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <project>",
	Short: "Remove a project and all of its snapshots",
	Args:  cobra.ExactArgs(1),
	Run:   runProjectRemove,
}

var projectUseCmd = &cobra.Command{
	Use:   "use <project>",
	Short: "Select the project other commands operate on",
	Args:  cobra.ExactArgs(1),
	Run:   runProjectUse,
}

var projectTestCmd = &cobra.Command{
	Use:   "test [project]",
	Short: "Check that a project's database is reachable",
	Args:  cobra.MaximumNArgs(1),
	Run:   runProjectTest,
}

var (
	projectName     string
	projectColor    string
	projectRDBMS    string
	projectUser     string
	projectPassword string
	projectHost     string
	projectPort     string
	projectSchema   string
)

func init() {
	projectCmd.AddCommand(projectListCmd, projectAddCmd, projectUpdateCmd, projectRemoveCmd, projectUseCmd, projectTestCmd)

	// add and update bind the same vars; only one command path runs.
	for _, cmd := range []*cobra.Command{projectAddCmd, projectUpdateCmd} {
		f := cmd.Flags()
		f.StringVar(&projectColor, "color", core.DefaultProjectColor, "Display color")
		f.StringVar(&projectRDBMS, "rdbms", string(models.RDBMSMySQL), "Database kind (mysql|sqlite)")
		f.StringVar(&projectUser, "user", "", "Database user")
		f.StringVar(&projectPassword, "password", os.Getenv("DBDIFF_PASSWORD"), "Database password (env: DBDIFF_PASSWORD)")
		f.StringVar(&projectHost, "host", "", "Database host")
		f.StringVar(&projectPort, "port", "", "Database port")
		f.StringVar(&projectSchema, "schema", "", "Database schema, or the file path for sqlite")
	}
	projectUpdateCmd.Flags().StringVar(&projectName, "name", "", "New project name")
}

func runProjectList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	projects, err := c.Store.ListProjects()
	if err != nil {
		exitError("failed to list projects: %v", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects")
		return
	}

	for _, p := range projects {
		printProject(p, p.ID == c.Config.CurrentProject)
	}
}

func printProject(p *models.Project, current bool) {
	marker := " "
	if current {
		marker = "*"
	}
	projectColorFor(p).Printf("%s %-20s", marker, p.Name)
	fmt.Printf(" %-7s %-40s %s\n", p.RDBMS, describeTarget(p), shortID(p.ID))
}

// describeTarget renders where a project points to, without credentials.
func describeTarget(p *models.Project) string {
	if p.RDBMS == models.RDBMSSQLite {
		return p.Schema
	}
	target := p.Host
	if p.Port != "" {
		target += ":" + p.Port
	}
	if p.User != "" {
		target = p.User + "@" + target
	}
	return target + "/" + p.Schema
}

var projectColors = map[string]color.Attribute{
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
}

func projectColorFor(p *models.Project) *color.Color {
	if attr, ok := projectColors[p.Color]; ok {
		return color.New(attr)
	}
	return color.New(color.Reset)
}

func runProjectAdd(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p := &models.Project{
		Name:     args[0],
		Color:    projectColor,
		RDBMS:    models.RDBMS(projectRDBMS),
		User:     projectUser,
		Password: projectPassword,
		Host:     projectHost,
		Port:     projectPort,
		Schema:   projectSchema,
	}
	if err := core.CreateProject(c.Store, p); err != nil {
		exitError("failed to add project: %v", err)
	}

	// The first project becomes current.
	if c.Config.CurrentProject == "" {
		c.Config.CurrentProject = p.ID
		if err := c.Config.Save(); err != nil {
			exitError("failed to save config: %v", err)
		}
	}

	color.New(color.FgGreen).Printf("Added project '%s'", p.Name)
	fmt.Printf(" (%s)\n", shortID(p.ID))
}

func runProjectUpdate(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p, err := core.ResolveProject(c.Store, args[0])
	if err != nil {
		exitError("%v", err)
	}

	f := cmd.Flags()
	set := func(name string, dst *string, value string) {
		if f.Changed(name) {
			*dst = value
		}
	}
	set("name", &p.Name, projectName)
	set("color", &p.Color, projectColor)
	set("user", &p.User, projectUser)
	set("password", &p.Password, projectPassword)
	set("host", &p.Host, projectHost)
	set("port", &p.Port, projectPort)
	set("schema", &p.Schema, projectSchema)
	if f.Changed("rdbms") {
		p.RDBMS = models.RDBMS(projectRDBMS)
	}

	if err := core.UpdateProject(c.Store, p); err != nil {
		exitError("failed to update project: %v", err)
	}

	fmt.Printf("Updated project '%s'\n", p.Name)
}

func runProjectRemove(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p, err := core.ResolveProject(c.Store, args[0])
	if err != nil {
		exitError("%v", err)
	}

	if err := core.DeleteProject(c.Config, c.Store, p.ID); err != nil {
		exitError("failed to remove project: %v", err)
	}

	fmt.Printf("Removed project '%s'\n", p.Name)
}

func runProjectUse(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p, err := core.SelectProject(c.Config, c.Store, args[0])
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Switched to project '%s'\n", p.Name)
}

func runProjectTest(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	var p *models.Project
	if len(args) == 1 {
		var err error
		if p, err = core.ResolveProject(c.Store, args[0]); err != nil {
			exitError("%v", err)
		}
	} else {
		p = c.project()
	}

	if err := core.TestConnection(context.Background(), p); err != nil {
		color.New(color.FgRed).Printf("Connection to '%s' failed\n", p.Name)
		exitError("%v", err)
	}

	color.New(color.FgGreen).Printf("Connection to '%s' succeeded\n", p.Name)
}
