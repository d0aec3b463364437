package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harborline/stevedore/internal/config"
	"github.com/harborline/stevedore/internal/ui"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Scaffold a new project (stevedore.yml, overlays, .env)",
	Long: `Initialize a new stevedore project.

This creates:
  - stevedore.yml      Base deployment descriptor template
  - overlays/dev.yml   Development overlay
  - overlays/prod.yml  Production overlay
  - app/Dockerfile     Starter build context
  - .env               Development variables (secrets freshly generated)
  - .env.production    Production variables (fill in before deploying)
  - .gitignore         Keeps env files and rendered state out of git

If no directory is specified, the current directory is used.

Use --yes to skip all interactive prompts (useful for non-TTY environments).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initYes bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Skip all interactive prompts (assume yes for all questions)")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absDir, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	targetDir = absDir

	templateFile := filepath.Join(targetDir, config.TemplateFileName)
	if _, err := os.Stat(templateFile); err == nil {
		ui.Warning("This directory already has a stevedore project.")
		if !initYes {
			response, err := promptYesNo("Reinitialize? This won't overwrite existing files.")
			if err != nil {
				return err
			}
			if !response {
				fmt.Println("Aborted.")
				return nil
			}
		}
	}

	ui.Info("Creating project structure...")
	dirs := []string{
		filepath.Join(targetDir, "overlays"),
		filepath.Join(targetDir, "app"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	ui.Success("Created directories")

	ui.Info("Creating starter files...")

	files := []struct {
		path    string
		content string
	}{
		{templateFile, starterTemplate},
		{filepath.Join(targetDir, "overlays", "dev.yml"), starterDevOverlay},
		{filepath.Join(targetDir, "overlays", "prod.yml"), starterProdOverlay},
		{filepath.Join(targetDir, "app", "Dockerfile"), starterDockerfile},
		{filepath.Join(targetDir, ".gitignore"), starterGitignore},
	}
	for _, f := range files {
		if err := createFileIfNotExists(f.path, f.content); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Base(f.path), err)
		}
	}

	// Env files carry generated secrets, so they go through the template
	// engine rather than being written verbatim.
	envFiles := []struct {
		path string
		tmpl string
	}{
		{filepath.Join(targetDir, ".env"), starterEnv},
		{filepath.Join(targetDir, ".env.production"), starterProdEnv},
	}
	for _, f := range envFiles {
		content, err := renderStarter(filepath.Base(f.path), f.tmpl)
		if err != nil {
			return fmt.Errorf("render %s: %w", filepath.Base(f.path), err)
		}
		if err := createFileIfNotExists(f.path, content); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Base(f.path), err)
		}
	}

	fmt.Println()
	ui.Header("Project initialized. Next steps:")
	fmt.Println()
	fmt.Println("  1. Edit stevedore.yml to describe your services")
	fmt.Println("  2. Fill in .env.production before a production render")
	fmt.Println("  3. Run 'stevedore doctor' to verify your setup")
	fmt.Println("  4. Run 'stevedore render' to see the resolved descriptor")
	fmt.Println()
	ui.Info("Run 'stevedore --help' for all commands.")

	return nil
}

// renderStarter expands a starter file template with sprig functions, so
// scaffolded secrets are unique per project.
func renderStarter(name, text string) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// isTerminal checks if stdin is a TTY.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptYesNo asks the user a yes/no question.
// Returns error if stdin is not a TTY and cannot read input.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, fmt.Errorf("cannot prompt for input: stdin is not a TTY. Use --yes flag to skip interactive prompts")
	}

	fmt.Printf("%s [y/N] ", question)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// createFileIfNotExists creates a file with the given content if it doesn't exist.
func createFileIfNotExists(filename, content string) error {
	if _, err := os.Stat(filename); err == nil {
		ui.Warning("%s already exists, skipping", filepath.Base(filename))
		return nil
	}

	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		return err
	}

	ui.Success("Created %s", filepath.Base(filename))
	return nil
}

// Starter file templates

const starterTemplate = `version: "3.8"

services:
  app:
    build: ./app
    ports:
      - "8000:8000"
    environment:
      DATABASE_URL: ${DATABASE_URL}
      SECRET_KEY: ${SECRET_KEY}
      ALGORITHM: ${ALGORITHM:-HS256}
      ACCESS_TOKEN_EXPIRE_MINUTES: ${ACCESS_TOKEN_EXPIRE_MINUTES:-30}
    depends_on:
      - db

  db:
    image: postgres:13
    environment:
      POSTGRES_USER: ${POSTGRES_USER}
      POSTGRES_PASSWORD: ${POSTGRES_PASSWORD}
      POSTGRES_DB: ${POSTGRES_DB}
    volumes:
      - postgres_data:/var/lib/postgresql/data

volumes:
  postgres_data:
`

const starterDevOverlay = `# Development overlay: expose the database for local tooling.
services:
  db:
    ports:
      - "5432:5432"
`

const starterProdOverlay = `# Production overlay: pinned image instead of a local build.
services:
  app:
    image: ${APP_IMAGE}
    ports:
      - "80:8000"
`

const starterDockerfile = `FROM python:3.11-slim
WORKDIR /code
COPY . .
EXPOSE 8000
CMD ["python", "-m", "http.server", "8000"]
`

const starterEnv = `# Development variables. Safe defaults, generated secrets.
{{- $dbPassword := randAlphaNum 24 }}
POSTGRES_USER=app
POSTGRES_PASSWORD={{ $dbPassword }}
POSTGRES_DB=appdb
DATABASE_URL=postgresql://app:{{ $dbPassword }}@db:5432/appdb
SECRET_KEY={{ randAlphaNum 48 }}
`

const starterProdEnv = `# Production variables. Fill these in before rendering with -f prod.
# Consider encrypting this file with SOPS: rename to .env.production.sops.env
POSTGRES_USER=app
POSTGRES_PASSWORD=
POSTGRES_DB=appdb
DATABASE_URL=
SECRET_KEY={{ randAlphaNum 48 }}
APP_IMAGE=
`

const starterGitignore = `# Environment files hold secrets (encrypted .sops. files are OK)
.env
.env.*
!*.sops.*

# Tool state and rendered output
.stevedore/
rendered/

# OS
.DS_Store
`
