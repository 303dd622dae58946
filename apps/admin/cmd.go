package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB // nil for the in-memory backend
	validate *validator.Validate
	usrSvc   *user.Service
	reports  *report.Service
	archiver func() (core.Archiver, error)
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                  - run database migrations (up, down, status, version, redo, reset...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-role ROLE]            - create a user, or reset the password of an existing one")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                              - reset user's password")
	fmt.Fprintln(cli.out, "  report [-course ID] [-student ID] [-teacher ID] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-out FILE] [-archive]")
	fmt.Fprintln(cli.out, "                                                          - export the attendance report as CSV")
	fmt.Fprintln(cli.out, "  lowattendance [-threshold BAND]                         - list the students below a band (Critical, Poor, Warning, Good)")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin.String(), "The user's role: Admin, Teacher or Student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	reportCmd := flag.NewFlagSet("report", flag.ContinueOnError)
	reportOpts := reportOptions{}
	reportCmd.IntVar(&reportOpts.courseID, "course", 0, "Only include this course.")
	reportCmd.IntVar(&reportOpts.studentID, "student", 0, "Only include this student.")
	reportCmd.IntVar(&reportOpts.teacherID, "teacher", 0, "Only include the courses of this teacher.")
	reportCmd.StringVar(&reportOpts.from, "from", "", "First date included (YYYY-MM-DD).")
	reportCmd.StringVar(&reportOpts.to, "to", "", "Last date included (YYYY-MM-DD).")
	reportCmd.StringVar(&reportOpts.out, "out", "", "Output file. Defaults to stdout.")
	reportCmd.BoolVar(&reportOpts.archive, "archive", false, "Upload the CSV to the report archive instead.")

	lowAttendanceCmd := flag.NewFlagSet("lowattendance", flag.ContinueOnError)
	lowAttendanceThreshold := lowAttendanceCmd.String("threshold", "Warning", "List students whose band is below this one.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.report(reportOpts)

	case "lowattendance":
		if err := lowAttendanceCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.lowAttendance(*lowAttendanceThreshold)

	default:
		cli.printUsage()
		return errHelp
	}
}
