package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/pipeline"
)

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Manage crypto sale records",
	RunE:  runSalesList,
}

var salesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import sales from an exchange export (JSON array or JSON lines)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSalesImport,
}

var salesLimit int

func init() {
	salesCmd.Flags().IntVar(&salesLimit, "limit", 20, "Number of sales to show")
	salesCmd.AddCommand(salesImportCmd)
	rootCmd.AddCommand(salesCmd)
}

func runSalesImport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sales, defects, err := pipeline.ParseSalesFile(args[0])
	if err != nil {
		return err
	}

	for _, sale := range sales {
		if err := st.UpsertSale(sale); err != nil {
			return fmt.Errorf("storing sale %s: %w", sale.OrderID, err)
		}
	}

	fmt.Printf("  Imported %s sales", formatNumber(int64(len(sales))))
	if defects > 0 {
		fmt.Printf(" (%d records skipped)", defects)
	}
	fmt.Println()
	return nil
}

func runSalesList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	days := windowDays(cfg)
	_, sales, _, _, err := loadHistory(st, days)
	if err != nil {
		return err
	}
	if len(sales) == 0 {
		fmt.Println("\n  No sales in the selected time range.")
		fmt.Println("  Import an exchange export with `wattmon sales import <file>`.")
		return nil
	}

	sort.Slice(sales, func(i, j int) bool {
		return sales[i].ExecutedAt.After(sales[j].ExecutedAt)
	})
	if salesLimit > 0 && len(sales) > salesLimit {
		sales = sales[:salesLimit]
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SALES  Last %dd (showing %d)", days, len(sales))))
	fmt.Println()

	rows := make([][]string, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, []string{
			s.ExecutedAt.Local().Format("Jan 02 15:04"),
			s.Currency,
			fmt.Sprintf("%.4f", s.AmountSold),
			fmt.Sprintf("%.2f", s.TotalReceived),
			fmt.Sprintf("%.4f", s.AvgPrice),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Executed", "Currency", "Sold", "Received", "Avg price"},
		Rows:    rows,
	}))
	return nil
}
