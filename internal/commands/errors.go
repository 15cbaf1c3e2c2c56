package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thesyncim/avio"
)

// codeView is the printed form of one error code.
type codeView struct {
	Name     string `json:"name"`
	Code     int    `json:"code"`
	Tag      string `json:"tag"`
	Kind     string `json:"kind"`
	Families string `json:"families"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

func newCodeView(info avio.CodeInfo) codeView {
	return codeView{
		Name:     info.Name,
		Code:     info.Code,
		Tag:      displayTag(info.Code),
		Kind:     info.Kind.Name(),
		Families: info.Kind.Families().String(),
		Message:  avio.Strerror(info.Code),
	}
}

// displayTag renders the 4-byte tag of a library code; errno codes have none.
func displayTag(code int) string {
	if code < 256 {
		return "-"
	}
	tag := []byte(avio.CodeToTag(code))
	for i, c := range tag {
		if c < 0x20 || c > 0x7e {
			tag[i] = '.'
		}
	}
	return string(tag)
}

func (a *App) newErrorsCommand() *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "List known error codes",
		Long: `List every error code avio recognises with its kind and families.

Codes missing from this table are reported as UnrecognizedError.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter avio.Family
			if family != "" {
				f, err := avio.ParseFamily(family)
				if err != nil {
					return usageError("%v", err)
				}
				filter = f
			}

			var views []codeView
			for _, info := range avio.Codes() {
				if filter != 0 && !info.Kind.Families().Has(filter) {
					continue
				}
				views = append(views, newCodeView(info))
			}
			return a.printCodes(views)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "only list kinds in these families (e.g. lookup, http|http-client)")
	return cmd
}

func (a *App) printCodes(views []codeView) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCODE\tTAG\tKIND\tFAMILIES\tMESSAGE")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", v.Name, v.Code, v.Tag, v.Kind, v.Families, v.Message)
	}
	return tw.Flush()
}

func (a *App) newExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <code|tag|name>",
		Short: "Explain an error code",
		Long: `Explain an error code given as a number (the sign is ignored), a
4-character tag such as INDA, or a table name such as INVALIDDATA. Tags and
names must belong to a known code.

Pass negative numbers after "--" so they are not read as flags.`,
		Example: `  avioctl explain 1094995529
  avioctl explain -- -541478725
  avioctl explain "EOF "
  avioctl explain AVERROR_HTTP_NOT_FOUND`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseCode(args[0])
			if err != nil {
				return usageError("%v", err)
			}

			view := codeView{
				Name:     "-",
				Code:     code,
				Tag:      displayTag(code),
				Kind:     avio.Lookup(code).Name(),
				Families: avio.Lookup(code).Families().String(),
			}
			for _, info := range avio.Codes() {
				if info.Code == code {
					view.Name = info.Name
					break
				}
			}

			// Render through Check so the message is the one callers see.
			_, checkErr := a.newScope().Check(-code)
			var avErr *avio.Error
			if errors.As(checkErr, &avErr) {
				view.Message = avErr.Message
			}
			view.Error = checkErr.Error()

			if a.jsonOutput {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			fmt.Fprintf(a.stdout, "name:     %s\n", view.Name)
			fmt.Fprintf(a.stdout, "code:     %d (result code %d)\n", view.Code, -view.Code)
			fmt.Fprintf(a.stdout, "tag:      %s\n", view.Tag)
			fmt.Fprintf(a.stdout, "kind:     %s\n", view.Kind)
			fmt.Fprintf(a.stdout, "families: %s\n", view.Families)
			fmt.Fprintf(a.stdout, "message:  %s\n", view.Message)
			fmt.Fprintf(a.stdout, "error:    %s\n", view.Error)
			return nil
		},
	}
}

// parseCode accepts a decimal code, or the 4-byte tag or table name of a
// known code, and returns the positive error code.
func parseCode(arg string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		if n < 0 {
			n = -n
		}
		if n == 0 {
			return 0, errors.New("0 is a success code")
		}
		return n, nil
	}

	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(arg)), "AVERROR_")
	tag, tagErr := avio.TagToCode(arg)
	for _, info := range avio.Codes() {
		if info.Name == name || (tagErr == nil && info.Code == tag) {
			return info.Code, nil
		}
	}
	return 0, fmt.Errorf("%q is not an error code, tag or name", arg)
}
