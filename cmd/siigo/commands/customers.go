package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// NewCustomersCommand creates the customers command group
func NewCustomersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "customers",
		Aliases: []string{"customer"},
		Short:   "Manage customers",
		Long:    "List, inspect, create, update and delete Siigo customers",
	}

	cmd.AddCommand(newCustomersListCommand())
	cmd.AddCommand(newCustomersGetCommand())
	cmd.AddCommand(newCustomersCreateCommand())
	cmd.AddCommand(newCustomersUpdateCommand())
	cmd.AddCommand(newCustomersDeleteCommand())

	return cmd
}

func newCustomersListCommand() *cobra.Command {
	var (
		allPages       bool
		pageSize       int
		identification string
		branchOffice   int
		createdStart   string
		createdEnd     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Long:  "List customers, optionally filtered by identification or creation date",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := &siigo.CustomerFilter{
				Identification: identification,
				PageSize:       pageSize,
			}

			if cmd.Flags().Changed("branch-office") {
				filter.BranchOffice = &branchOffice
			}

			var err error

			filter.CreatedStart, err = parseDate("created-start", createdStart)
			if err != nil {
				return err
			}

			filter.CreatedEnd, err = parseDate("created-end", createdEnd)
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			ctx := commandContext(cmd)

			var (
				customers []siigo.Customer
				page      *siigo.ListResponse[siigo.Customer]
			)

			if allPages {
				customers, err = client.Customers().List(ctx, filter.ToQueryParams()).All()
			} else {
				page, err = client.Customers().ListPage(ctx, filter.ToQueryParams())
				if page != nil {
					customers = page.Results
				}
			}

			if err != nil {
				return fmt.Errorf("failed to list customers: %w", err)
			}

			err = renderOutput(cmd.OutOrStdout(), customers, func(table *tablewriter.Table) error {
				table.Header("ID", "Identification", "Name", "Person Type", "Active")

				for _, customer := range customers {
					err := table.Append(customer.ID, customer.Identification, customer.DisplayName(), customer.PersonType, yesNo(customer.Active))
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
			if err != nil {
				return err
			}

			if page != nil && page.NextCursor() != "" && isTableOutput() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d of %d customers. Use --all to fetch all pages.\n",
					len(customers), page.Pagination.TotalResults)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")
	cmd.Flags().IntVar(&pageSize, "page-size", 25, "results per page")
	cmd.Flags().StringVar(&identification, "identification", "", "filter by identification number")
	cmd.Flags().IntVar(&branchOffice, "branch-office", 0, "filter by branch office")
	cmd.Flags().StringVar(&createdStart, "created-start", "", "only customers created on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&createdEnd, "created-end", "", "only customers created on or before this date (YYYY-MM-DD)")

	return cmd
}

func newCustomersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get CUSTOMER_ID",
		Short: "Get customer details",
		Long:  "Display detailed information about a specific customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			customer, err := client.Customers().Get(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to get customer: %w", err)
			}

			return renderCustomer(cmd, customer)
		},
	}
}

func newCustomersCreateCommand() *cobra.Command {
	var (
		fromFile       string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer",
		Long:  "Create a customer from a JSON or YAML payload file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &siigo.CustomerCreateRequest{}

			err := readPayload(fromFile, cmd.InOrStdin(), req)
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			var opts []siigo.RequestOption
			if idempotencyKey != "" {
				opts = append(opts, siigo.WithIdempotencyKey(idempotencyKey))
			}

			customer, err := client.Customers().Create(commandContext(cmd), req, opts...)
			if err != nil {
				return fmt.Errorf("failed to create customer: %w", err)
			}

			return renderCustomer(cmd, customer)
		},
	}

	cmd.Flags().StringVarP(&fromFile, "from-file", "f", "", "payload file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "idempotency key allowing the request to be retried")

	return cmd
}

func newCustomersUpdateCommand() *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "update CUSTOMER_ID",
		Short: "Update a customer",
		Long:  "Replace a customer with the contents of a JSON or YAML payload file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &siigo.CustomerCreateRequest{}

			err := readPayload(fromFile, cmd.InOrStdin(), req)
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			customer, err := client.Customers().Update(commandContext(cmd), args[0], req)
			if err != nil {
				return fmt.Errorf("failed to update customer: %w", err)
			}

			return renderCustomer(cmd, customer)
		},
	}

	cmd.Flags().StringVarP(&fromFile, "from-file", "f", "", "payload file (JSON or YAML, - for stdin)")

	return cmd
}

func newCustomersDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete CUSTOMER_ID",
		Short: "Delete a customer",
		Long:  "Delete a customer by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			err = client.Customers().Delete(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete customer: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Customer %s deleted\n", args[0])

			return nil
		},
	}
}

func renderCustomer(cmd *cobra.Command, customer *siigo.Customer) error {
	return renderOutput(cmd.OutOrStdout(), customer, func(table *tablewriter.Table) error {
		table.Header("Property", "Value")

		rows := [][]string{
			{"ID", customer.ID},
			{"Name", customer.DisplayName()},
			{"Person Type", customer.PersonType},
			{"ID Type", customer.IDType.Code},
			{"Identification", customer.Identification},
			{"Check Digit", orNotAvailable(customer.CheckDigit)},
			{"Branch Office", strconv.Itoa(customer.BranchOffice)},
			{"Active", yesNo(customer.Active)},
			{"VAT Responsible", yesNo(customer.VATResponsible)},
		}

		if customer.Address != nil {
			rows = append(rows, []string{"Address", customer.Address.Address})
		}

		for _, contact := range customer.Contacts {
			rows = append(rows, []string{"Contact", fmt.Sprintf("%s %s <%s>", contact.FirstName, contact.LastName, contact.Email)})
		}

		if customer.Metadata != nil {
			rows = append(rows, []string{"Created", customer.Metadata.Created.Format(time.RFC3339)})
		}

		for _, row := range rows {
			err := table.Append(row[0], row[1])
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		return nil
	})
}

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", flag, err)
	}

	return parsed, nil
}
