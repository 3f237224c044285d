package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "SIM_ACCEPTOR"

// prefixEnvVars names the env-var fallback for a flag, e.g.
// SIM_ACCEPTOR_OUTFILE.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Outfile = &cli.StringFlag{
		Name:    "outfile",
		Aliases: []string{"o"},
		Value:   "./tests.xml",
		EnvVars: prefixEnvVars("OUTFILE"),
		Usage:   "Path of the XML test results file to be generated",
	}
	Run32Bit = &cli.BoolFlag{
		Name:    "32bit",
		Value:   true,
		EnvVars: prefixEnvVars("32BIT"),
		Usage:   "Run 32-bit tests",
	}
	Run64Bit = &cli.BoolFlag{
		Name:    "64bit",
		Value:   true,
		EnvVars: prefixEnvVars("64BIT"),
		Usage:   "Run 64-bit tests",
	}
	CSim = &cli.BoolFlag{
		Name:    "c-sim",
		Value:   true,
		EnvVars: prefixEnvVars("C_SIM"),
		Usage:   "Run the C simulator",
	}
	OCamlSim = &cli.BoolFlag{
		Name:    "ocaml-sim",
		Value:   false,
		EnvVars: prefixEnvVars("OCAML_SIM"),
		Usage:   "Run the OCaml simulator",
	}
	Sailcov = &cli.BoolFlag{
		Name:    "sailcov",
		Value:   false,
		EnvVars: prefixEnvVars("SAILCOV"),
		Usage:   "Compile and run to collect Sail model coverage (implies --clean-build; coverage is gathered separately for 32 and 64 bit models)",
	}
	CleanBuild = &cli.BoolFlag{
		Name:    "clean-build",
		Value:   true,
		EnvVars: prefixEnvVars("CLEAN_BUILD"),
		Usage:   "Run a 'make clean' before each backend/width combination",
	}
	TestDir = &cli.StringSliceFlag{
		Name:    "test-dir",
		Value:   cli.NewStringSlice("isa", "riscv-tests"),
		EnvVars: prefixEnvVars("TEST_DIR"),
		Usage:   "Directories to search for test ELF images; the first existing one is used",
	}
	TestSwitches = &cli.StringFlag{
		Name:    "test-switches",
		Value:   "",
		EnvVars: prefixEnvVars("TEST_SWITCHES"),
		Usage:   "Path to a YAML file mapping test name patterns to extra simulator switches",
	}
	TestIgnore = &cli.StringFlag{
		Name:    "test-ignore",
		Value:   "",
		EnvVars: prefixEnvVars("TEST_IGNORE"),
		Usage:   "Path to a YAML file listing test names to skip",
	}
	RootDir = &cli.StringFlag{
		Name:    "root-dir",
		Value:   "",
		EnvVars: prefixEnvVars("ROOT_DIR"),
		Usage:   "Repository root; discovered via the root marker file when omitted",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOG_DIR"),
		Usage:   "Directory for per-run artifacts",
	}
	TestTimeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Per-test wall-clock timeout",
	}
	MakeBinary = &cli.StringFlag{
		Name:    "make-binary",
		Value:   "make",
		EnvVars: prefixEnvVars("MAKE_BINARY"),
		Usage:   "Path to the make binary used to build the simulators",
	}
	StopOnBuildFailure = &cli.BoolFlag{
		Name:    "stop-on-build-failure",
		Value:   false,
		EnvVars: prefixEnvVars("STOP_ON_BUILD_FAILURE"),
		Usage:   "Abort the whole run when a backend build fails, instead of recording it and continuing",
	}
	MetricsGateway = &cli.StringFlag{
		Name:    "metrics-gateway",
		Value:   "",
		EnvVars: prefixEnvVars("METRICS_GATEWAY"),
		Usage:   "Prometheus Pushgateway URL; metrics are pushed once at the end of the run",
	}
	MetricsJob = &cli.StringFlag{
		Name:    "metrics-job",
		Value:   "sim-acceptor",
		EnvVars: prefixEnvVars("METRICS_JOB"),
		Usage:   "Job name used when pushing metrics",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: trace, debug, info, warn, error, crit",
	}
	DebugFlag = &cli.BoolFlag{
		Name:    "debug",
		Aliases: []string{"d"},
		Value:   false,
		EnvVars: prefixEnvVars("DEBUG"),
		Usage:   "Turn on debug output (same as --log-level=debug)",
	}
)

var Flags = []cli.Flag{
	Outfile,
	Run32Bit,
	Run64Bit,
	CSim,
	OCamlSim,
	Sailcov,
	CleanBuild,
	TestDir,
	TestSwitches,
	TestIgnore,
	RootDir,
	LogDir,
	TestTimeout,
	MakeBinary,
	StopOnBuildFailure,
	MetricsGateway,
	MetricsJob,
	LogLevel,
	DebugFlag,
}

// CheckRequired validates flag combinations that the CLI library cannot
// express on its own.
func CheckRequired(ctx *cli.Context) error {
	if !ctx.Bool(Run32Bit.Name) && !ctx.Bool(Run64Bit.Name) {
		return fmt.Errorf("at least one of --%s and --%s must be enabled", Run32Bit.Name, Run64Bit.Name)
	}
	if !ctx.Bool(CSim.Name) && !ctx.Bool(OCamlSim.Name) {
		return fmt.Errorf("at least one of --%s and --%s must be enabled", CSim.Name, OCamlSim.Name)
	}
	if ctx.Duration(TestTimeout.Name) <= 0 {
		return fmt.Errorf("--%s must be positive", TestTimeout.Name)
	}
	return nil
}
