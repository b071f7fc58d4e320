package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docflow/docflow/portal/internal/dashboard"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and print the LOGIN_SUCCESSFUL envelope with the token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := c.login(cmd.Context(), args[0], args[1])
			if perr := printJSON(cmd.OutOrStdout(), w); perr != nil {
				return perr
			}
			return err
		},
	}
}

func (c *cli) userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the current token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.GetUser(cmd.Context()))
		},
	}
}

func (c *cli) partnersCmd() *cobra.Command {
	root := &cobra.Command{Use: "partners", Short: "Portfolio managers and field partners"}

	get := &cobra.Command{
		Use:   "get <fp-id>",
		Short: "Show a field partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := c.client.GetFPByID(cmd.Context(), args[0])
			return printRead(cmd, fp, err)
		},
	}

	var pmID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the field partners of a portfolio manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fps, err := c.client.GetPartnersByPM(cmd.Context(), pmID)
			return printRead(cmd, fps, err)
		},
	}
	list.Flags().StringVar(&pmID, "pm", "", "portfolio manager id")
	_ = list.MarkFlagRequired("pm")

	pm := &cobra.Command{
		Use:   "pm <email>",
		Short: "Look up a portfolio manager by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.client.GetPMByEmail(cmd.Context(), args[0])
			return printRead(cmd, p, err)
		},
	}

	var org, email, owner string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a field partner owned by a portfolio manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.CreateFieldPartner(cmd.Context(), org, email, owner))
		},
	}
	create.Flags().StringVar(&org, "org", "", "organization name")
	create.Flags().StringVar(&email, "email", "", "field partner email")
	create.Flags().StringVar(&owner, "pm", "", "owning portfolio manager id")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("pm")

	status := &cobra.Command{
		Use:   "status <fp-id> <New Partner|In Process|Complete>",
		Short: "Set a field partner's application status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.UpdateFieldPartnerStatus(cmd.Context(), args[0], workflow.AppStatus(args[1])))
		},
	}
	instructions := &cobra.Command{
		Use:   "instructions <fp-id> <text>",
		Short: "Replace a field partner's instructions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.UpdateFPInstructions(cmd.Context(), args[0], args[1]))
		},
	}
	due := &cobra.Command{
		Use:   "due <fp-id> <date>",
		Short: "Set a field partner's due date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.UpdateFieldPartnerDueDate(cmd.Context(), args[0], args[1]))
		},
	}

	root.AddCommand(get, list, pm, create, status, instructions, due)
	return root
}

func openFile(path string) (transport.File, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return transport.File{}, nil, err
	}
	return transport.File{Name: filepath.Base(path), Content: f}, func() { _ = f.Close() }, nil
}

func (c *cli) classesCmd() *cobra.Command {
	root := &cobra.Command{Use: "classes", Short: "Document classes"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List document classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			classes, err := c.client.GetAllDocumentClasses(cmd.Context())
			return printRead(cmd, classes, err)
		},
	}

	var name, desc, example string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a document class with an example file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, done, err := openFile(example)
			if err != nil {
				return err
			}
			defer done()
			return printWrite(cmd, c.client.CreateDocumentClass(cmd.Context(), name, desc, file))
		},
	}
	create.Flags().StringVar(&name, "name", "", "class name")
	create.Flags().StringVar(&desc, "description", "", "class description")
	create.Flags().StringVar(&example, "file", "", "example file")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("file")

	var uName, uDesc, uFile string
	update := &cobra.Command{
		Use:   "update <class-id>",
		Short: "Update a document class; the example file is optional",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file *transport.File
			if uFile != "" {
				f, done, err := openFile(uFile)
				if err != nil {
					return err
				}
				defer done()
				file = &f
			}
			return printWrite(cmd, c.client.UpdateDocumentClass(cmd.Context(), args[0], uName, uDesc, file))
		},
	}
	update.Flags().StringVar(&uName, "name", "", "class name")
	update.Flags().StringVar(&uDesc, "description", "", "class description")
	update.Flags().StringVar(&uFile, "file", "", "new example file")

	del := &cobra.Command{
		Use:   "delete <class-id>",
		Short: "Delete a document class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.DeleteDocumentClass(cmd.Context(), args[0]))
		},
	}

	root.AddCommand(list, create, update, del)
	return root
}

func (c *cli) documentsCmd() *cobra.Command {
	root := &cobra.Command{Use: "docs", Short: "Requested documents"}

	list := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's documents by status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := c.client.GetDocumentsByUser(cmd.Context(), args[0])
			return printRead(cmd, docs, err)
		},
	}

	var classes, dueDate string
	request := &cobra.Command{
		Use:   "request <fp-id>",
		Short: "Request one document per class from a field partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []string
			for _, id := range strings.Split(classes, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
			return printWrite(cmd, c.client.CreateDocuments(cmd.Context(), args[0], ids, dueDate))
		},
	}
	request.Flags().StringVar(&classes, "classes", "", "comma-separated document class ids")
	request.Flags().StringVar(&dueDate, "due", "", "due date")
	_ = request.MarkFlagRequired("classes")

	var fpID, reason string
	decide := func(use string, status workflow.Status) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <doc-id>",
			Short: "Mark a pending document " + string(status),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printWrite(cmd, c.client.UpdateDocumentStatus(cmd.Context(), fpID, args[0], status, reason))
			},
		}
	}
	approve := decide("approve", workflow.StatusApproved)
	reject := decide("reject", workflow.StatusRejected)
	for _, d := range []*cobra.Command{approve, reject} {
		d.Flags().StringVar(&fpID, "fp", "", "field partner to notify")
		d.Flags().StringVar(&reason, "reason", "", "reason sent with the notification")
		_ = d.MarkFlagRequired("fp")
	}

	var uploadFP string
	upload := &cobra.Command{
		Use:   "upload <doc-id> <file>",
		Short: "Upload the file for a missing or rejected document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, done, err := openFile(args[1])
			if err != nil {
				return err
			}
			defer done()
			return printWrite(cmd, c.client.UploadDocument(cmd.Context(), uploadFP, file, args[0]))
		},
	}
	upload.Flags().StringVar(&uploadFP, "fp", "", "uploading field partner")
	_ = upload.MarkFlagRequired("fp")

	del := &cobra.Command{
		Use:   "delete <doc-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.DeleteDocument(cmd.Context(), args[0]))
		},
	}
	purge := &cobra.Command{
		Use:   "delete-all <fp-id>",
		Short: "Delete every document of a field partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, c.client.DeleteDocumentsByFP(cmd.Context(), args[0]))
		},
	}
	download := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Print the backend's download payload for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.client.DownloadDocument(cmd.Context(), args[0])
			return printRead(cmd, out, err)
		},
	}

	root.AddCommand(list, request, approve, reject, upload, del, purge, download)
	return root
}

func (c *cli) messagesCmd() *cobra.Command {
	root := &cobra.Command{Use: "messages", Short: "Document notifications"}

	var toFP bool
	fp := &cobra.Command{
		Use:   "fp <fp-id>",
		Short: "Messages about a field partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := c.client.GetMessagesByFP(cmd.Context(), args[0], toFP)
			return printRead(cmd, msgs, err)
		},
	}
	fp.Flags().BoolVar(&toFP, "to-fp", true, "messages addressed to the field partner (false: to the PM)")

	pm := &cobra.Command{
		Use:   "pm <pm-id>",
		Short: "Messages addressed to a portfolio manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := c.client.GetMessagesByPM(cmd.Context(), args[0])
			return printRead(cmd, msgs, err)
		},
	}

	root.AddCommand(fp, pm)
	return root
}

func (c *cli) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board <pm|fp> <fp-id>",
		Short: "Print a field partner's board in the role's column order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := workflow.ParseRole(args[0])
			if err != nil {
				return err
			}
			view, err := dashboard.ViewFor(role)
			if err != nil {
				return err
			}
			st := dashboard.Load(cmd.Context(), c.client, args[1], role)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s board for %s (due %s)\n", role, args[1], orDash(st.DueDate))
			if st.Instructions != "" {
				fmt.Fprintf(out, "instructions: %s\n", st.Instructions)
			}
			for _, col := range dashboard.Group(view, st.Documents) {
				fmt.Fprintf(out, "%s (%d)\n", col.Status, len(col.Documents))
				moves := dashboard.Moves(role, col.Status)
				for _, d := range col.Documents {
					if len(moves) == 0 {
						fmt.Fprintf(out, "  %s %s\n", d.ID, d.Name)
						continue
					}
					fmt.Fprintf(out, "  %s %s -> %s\n", d.ID, d.Name, joinStatuses(moves))
				}
			}
			fmt.Fprintf(out, "messages: %d\n", len(st.Messages))
			return nil
		},
	}
}

func joinStatuses(ss []workflow.Status) string {
	out := make([]string, len(ss))
	for i, st := range ss {
		out[i] = string(st)
	}
	return strings.Join(out, "|")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
