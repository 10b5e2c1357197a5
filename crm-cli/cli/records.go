package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"micro-crm/crm-cli/legacy"

	"github.com/spf13/cobra"
)

type clientFlags struct {
	nombre, empresa, correo, telefono, direccion string
	proyecto, etapa                              string
	valor                                        float64
}

func (f *clientFlags) bind(cmd *cobra.Command, withProject bool) {
	cmd.Flags().StringVar(&f.nombre, "nombre", "", "Contact name")
	cmd.Flags().StringVar(&f.empresa, "empresa", "", "Company")
	cmd.Flags().StringVar(&f.correo, "correo", "", "Email")
	cmd.Flags().StringVar(&f.telefono, "telefono", "", "Phone")
	cmd.Flags().StringVar(&f.direccion, "direccion", "", "Address")
	if withProject {
		cmd.Flags().StringVar(&f.proyecto, "proyecto", "", "Create a linked project with this name")
		cmd.Flags().Float64Var(&f.valor, "valor", 0, "Linked project value")
		cmd.Flags().StringVar(&f.etapa, "etapa", legacy.DefaultStage, "Linked project stage")
	}
}

// merge overlays the flags the user actually set on an existing client.
func (f *clientFlags) merge(cmd *cobra.Command, c legacy.Client) legacy.ClientInput {
	in := legacy.ClientInput{Nombre: c.Nombre, Empresa: c.Empresa, Correo: c.Correo, Telefono: c.Telefono, Direccion: c.Direccion}
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("nombre", &in.Nombre, f.nombre)
	set("empresa", &in.Empresa, f.empresa)
	set("correo", &in.Correo, f.correo)
	set("telefono", &in.Telefono, f.telefono)
	set("direccion", &in.Direccion, f.direccion)
	return in
}

func findClient(store *legacy.Store, id legacy.ID) (legacy.Client, error) {
	for _, c := range store.Clients {
		if c.ID == id {
			return c, nil
		}
	}
	return legacy.Client{}, legacy.ErrClientNotFound
}

func newClientsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "clients",
		Short:             "Manage the local client list",
		PersistentPreRunE: s.openAuthenticated,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			if len(store.Clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clients")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNOMBRE\tEMPRESA\tCORREO\tPROYECTOS")
			for _, c := range store.Clients {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", c.ID, c.Nombre, c.Empresa, c.Correo, len(store.ProjectsForClient(c.ID)))
			}
			return w.Flush()
		},
	}

	var addFlags clientFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a client, optionally with a linked project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			in := legacy.ClientInput{
				Nombre:    addFlags.nombre,
				Empresa:   addFlags.empresa,
				Correo:    addFlags.correo,
				Telefono:  addFlags.telefono,
				Direccion: addFlags.direccion,
			}
			if addFlags.proyecto != "" {
				in.Project = &legacy.ProjectInput{Nombre: addFlags.proyecto, Valor: addFlags.valor, Etapa: addFlags.etapa}
			}
			client, err := store.SaveClient(cmd.Context(), in, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Client %s created\n", client.ID)
			return nil
		},
	}
	addFlags.bind(add, true)

	var editFlags clientFlags
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			id := legacy.ID(args[0])
			current, err := findClient(store, id)
			if err != nil {
				return err
			}
			if _, err := store.SaveClient(cmd.Context(), editFlags.merge(cmd, current), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Client %s updated\n", id)
			return nil
		},
	}
	editFlags.bind(edit, false)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client and its projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := store.DeleteClient(cmd.Context(), legacy.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Client %s deleted with %d projects\n", args[0], removed)
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, del)
	return cmd
}

func newProjectsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "projects",
		Short:             "Manage the local project list",
		PersistentPreRunE: s.openAuthenticated,
	}

	var clientID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			projects := store.Projects
			if clientID != "" {
				projects = store.ProjectsForClient(legacy.ID(clientID))
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNOMBRE\tVALOR\tETAPA\tCLIENTE\tOBS")
			for _, p := range projects {
				client := "-"
				if p.ClientID != nil {
					client = string(*p.ClientID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", p.ID, p.Nombre,
					strconv.FormatFloat(p.Valor, 'f', -1, 64), p.Etapa, client, len(p.Observaciones))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&clientID, "client", "", "Only projects linked to this client")

	var in legacy.ProjectInput
	var linkTo string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Etapa != "" && !validStage(in.Etapa) {
				return fmt.Errorf("unknown stage %q, expected one of: %s", in.Etapa, strings.Join(legacy.Stages, ", "))
			}
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			var link *legacy.ID
			if linkTo != "" {
				id := legacy.ID(linkTo)
				link = &id
			}
			project, err := store.AddProject(cmd.Context(), in, link)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %s created\n", project.ID)
			return nil
		},
	}
	add.Flags().StringVar(&in.Nombre, "nombre", "", "Project name")
	add.Flags().Float64Var(&in.Valor, "valor", 0, "Project value")
	add.Flags().StringVar(&in.Etapa, "etapa", legacy.DefaultStage, "Project stage")
	add.Flags().StringVar(&linkTo, "client", "", "Link to this client")

	observe := &cobra.Command{
		Use:   "observe <projectId> <text>",
		Short: "Add an observation to a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			obs, err := store.AddObservation(cmd.Context(), legacy.ID(args[0]), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if obs == nil {
				return errors.New("observation text is empty")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Observation %s added on %s\n", obs.ID, obs.Fecha)
			return nil
		},
	}

	cmd.AddCommand(list, add, observe)
	return cmd
}

func validStage(stage string) bool {
	for _, s := range legacy.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

func newUsersCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "users",
		Short:             "Manage the local user directory",
		PersistentPreRunE: s.openAuthenticated,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			if len(store.Users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNOMBRE\tCORREO\tROL")
			for _, u := range store.Users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Nombre, u.Correo, u.Rol)
			}
			return w.Flush()
		},
	}

	var addIn legacy.UserInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			user, err := store.AddUser(cmd.Context(), addIn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s created as %s\n", user.ID, user.Rol)
			return nil
		},
	}
	bindUserFlags(add, &addIn)

	var editIn legacy.UserInput
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			id := legacy.ID(args[0])
			in := editIn
			for _, u := range store.Users {
				if u.ID != id {
					continue
				}
				if !cmd.Flags().Changed("nombre") {
					in.Nombre = u.Nombre
				}
				if !cmd.Flags().Changed("correo") {
					in.Correo = u.Correo
				}
				if !cmd.Flags().Changed("rol") {
					in.Rol = u.Rol
				}
			}
			if _, err := store.UpdateUser(cmd.Context(), id, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s updated\n", id)
			return nil
		},
	}
	bindUserFlags(edit, &editIn)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.records(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.DeleteUser(cmd.Context(), legacy.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, del)
	return cmd
}

func bindUserFlags(cmd *cobra.Command, in *legacy.UserInput) {
	cmd.Flags().StringVar(&in.Nombre, "nombre", "", "Name")
	cmd.Flags().StringVar(&in.Correo, "correo", "", "Email")
	cmd.Flags().StringVar(&in.Rol, "rol", "", "Role (default "+legacy.DefaultRole+")")
}
