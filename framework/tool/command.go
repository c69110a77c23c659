package tool

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/km-arc/di-config/framework/config"
)

// ErrInvalidArguments is returned by the cobra command when Run fails.
var ErrInvalidArguments = errors.New("invalid arguments")

const helpTemplate = `<info>Usage:</info>

  %s [-h|--help|help] <configFile> <className>

<info>Arguments:</info>

  <info>-h|--help|help</info>          This usage message
  <info><configFile></info>            Path to a YAML config file for which to generate
                          configuration. If the file does not exist, it will
                          be created. If it does exist, it must contain a
                          mapping, and the file will be updated with new
                          configuration.
  <info><className></info>             Identifier of the class to be added as a new
                          entry in the autowires configuration.

Reads the provided configuration file (creating it if it does not exist),
and adds the provided class name in the autowires list, writing the changes
back to the file. The class name is added once.`

// ClassChecker reports whether a class identifier is known.
// *container.Registry satisfies it.
type ClassChecker interface {
	Has(class string) bool
}

var classPattern = regexp.MustCompile(`^([A-Za-z0-9_.~-]+/)*[A-Za-z0-9_.~-]*[A-Za-z0-9_~-]\.[A-Za-z_][A-Za-z0-9_]*$`)

// ClassNameSyntax accepts any well formed qualified type name such as
// "example.com/app/mail.Mailer". It is used when no registry is available.
type ClassNameSyntax struct{}

// Has reports whether class looks like "<import path>.<TypeName>".
func (ClassNameSyntax) Has(class string) bool { return classPattern.MatchString(class) }

// ── Command ───────────────────────────────────────────────────────────────────

// Command adds a class to the autowires list of a configuration file.
//
//	cmd := &tool.Command{ScriptName: "autowires-config-dumper"}
//	os.Exit(cmd.Run(os.Args[1:]))
type Command struct {
	ScriptName string
	Helper     *ConsoleHelper
	Fs         afero.Fs
	Classes    ClassChecker
	Dumper     Dumper
}

type arguments struct {
	help       bool
	message    string
	configFile string
	config     config.RawConfig
	class      string
}

// Run executes the command with args (script name excluded) and returns the
// process exit status.
func (c *Command) Run(args []string) int {
	c.defaults()

	a := c.parseArgs(args)
	switch {
	case a.help:
		c.help(false)
		return 0
	case a.message != "":
		c.Helper.WriteErrorMessage(a.message)
		c.help(true)
		return 1
	}

	raw, err := c.Dumper.CreateDependencyConfig(a.config, a.class)
	if err != nil {
		c.Helper.WriteErrorMessage(fmt.Sprintf(`Unable to create config for "%s": %s`, a.class, err))
		c.help(true)
		return 1
	}

	data, err := c.Dumper.DumpConfigFile(raw)
	if err == nil {
		err = afero.WriteFile(c.Fs, a.configFile, data, 0o644)
	}
	if err != nil {
		c.Helper.WriteErrorMessage(fmt.Sprintf(`Unable to write configuration at path "%s": %s`, a.configFile, err))
		return 1
	}

	c.Helper.WriteLine(c.Helper.Stdout, "<info>[DONE]</info> Changes written to "+a.configFile)
	return 0
}

func (c *Command) defaults() {
	if c.ScriptName == "" {
		c.ScriptName = "autowires-config-dumper"
	}
	if c.Helper == nil {
		c.Helper = NewConsoleHelper(nil, nil)
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Classes == nil {
		c.Classes = ClassNameSyntax{}
	}
}

func (c *Command) parseArgs(args []string) arguments {
	if len(args) == 0 {
		return arguments{help: true}
	}

	switch args[0] {
	case "-h", "--help", "help":
		return arguments{help: true}
	}
	if len(args) < 2 {
		return arguments{message: "Missing class name"}
	}

	configFile := args[0]
	raw := config.RawConfig{}

	exists, err := afero.Exists(c.Fs, configFile)
	switch {
	case err != nil:
		return arguments{message: fmt.Sprintf(`Cannot read configuration at path "%s": %s`, configFile, err)}
	case exists:
		raw, err = config.LoadFile(c.Fs, configFile)
		if err != nil {
			return arguments{message: fmt.Sprintf(`Configuration at path "%s" does not return an array.`, configFile)}
		}
	default:
		if !c.writable(filepath.Dir(configFile)) {
			return arguments{message: fmt.Sprintf(`Cannot create configuration at path "%s"; not writable.`, configFile)}
		}
	}

	class := args[1]
	if !c.Classes.Has(class) {
		return arguments{message: fmt.Sprintf(`Class "%s" does not exist or could not be autoloaded.`, class)}
	}

	return arguments{configFile: configFile, config: raw, class: class}
}

// writable probes dir by creating and removing a temporary file.
func (c *Command) writable(dir string) bool {
	if ok, err := afero.DirExists(c.Fs, dir); err != nil || !ok {
		return false
	}
	f, err := afero.TempFile(c.Fs, dir, ".autowires-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = c.Fs.Remove(name)
	return true
}

func (c *Command) help(toStderr bool) {
	w := c.Helper.Stdout
	if toStderr {
		w = c.Helper.Stderr
	}
	c.Helper.WriteLine(w, fmt.Sprintf(helpTemplate, c.ScriptName))
}

// ── Cobra ─────────────────────────────────────────────────────────────────────

// NewCobraCommand wraps cmd for use as a cobra root command. Arguments are
// passed through untouched so that "-h" and "help" reach Run.
func NewCobraCommand(cmd *Command) *cobra.Command {
	name := cmd.ScriptName
	if name == "" {
		name = "autowires-config-dumper"
	}
	return &cobra.Command{
		Use:                name + " [-h|--help|help] <configFile> <className>",
		Short:              "Add a class to the autowires list of a configuration file",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cc *cobra.Command, args []string) error {
			if cmd.Helper == nil {
				cmd.Helper = NewConsoleHelper(cc.OutOrStdout(), cc.ErrOrStderr())
			}
			if code := cmd.Run(args); code != 0 {
				return ErrInvalidArguments
			}
			return nil
		},
	}
}
