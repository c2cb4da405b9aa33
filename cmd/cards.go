package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cardNo     string
	cardOutput string
	cardFormat string
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Query access cards",
}

var cardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cards, or a single card with --card-no",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		cards, err := api.GetCards(cmd.Context(), cardNo)
		if err != nil {
			fail("Error fetching cards: %s", explain(err))
		}

		if cardOutput != "" {
			exportRecords(cardOutput, cardFormat, cards)
			return
		}

		if jsonOutput {
			printJSON(cards)
			return
		}

		if len(cards) == 0 {
			fmt.Println("No cards found.")
			return
		}
		printRecords(cards, "cardNo", "employeeNo", "cardType", "leaderCard")
	},
}

func init() {
	rootCmd.AddCommand(cardsCmd)
	cardsCmd.AddCommand(cardsListCmd)

	cardsListCmd.Flags().StringVar(&cardNo, "card-no", "", "Card number")
	cardsListCmd.Flags().StringVarP(&cardOutput, "output", "o", "", "Export cards to a .json or .csv file")
	cardsListCmd.Flags().StringVar(&cardFormat, "format", "", "Export format (json or csv), defaults to the file extension")
}
