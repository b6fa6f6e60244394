package cmd

import (
	"fmt"
	"strconv"

	"github.com/iksnae/rag-chat/internal"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local usage counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := a.ctrl.Registry().List()
		messages := 0
		for _, s := range sessions {
			messages += len(a.ctrl.Log().Load(s.ID))
		}

		fmt.Println(headerStyle.Render("📊 ragchat stats"))
		fmt.Println("Requests today: ", countStyle.Render(strconv.Itoa(a.ctrl.Counter().Today())))
		fmt.Println("Saved sessions: ", countStyle.Render(strconv.Itoa(len(sessions))))
		fmt.Println("Saved messages: ", countStyle.Render(strconv.Itoa(messages)))
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings [key] [value]",
	Short: "Show or change persisted settings",
	Long: `With no arguments, print the persisted settings. With a key and a value,
change one: "settings auto-scroll false", "settings show-sources true".`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		settings := internal.LoadSettings(a.store)
		if len(args) < 2 {
			fmt.Println("auto-scroll:  ", settings.AutoScroll)
			fmt.Println("show-sources: ", settings.ShowSources)
			return nil
		}

		value, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("value must be true or false: %w", err)
		}
		switch args[0] {
		case "auto-scroll":
			settings.AutoScroll = value
		case "show-sources":
			settings.ShowSources = value
		default:
			return fmt.Errorf("unknown setting %q (known: auto-scroll, show-sources)", args[0])
		}
		if err := internal.SaveSettings(a.store, settings); err != nil {
			return err
		}
		fmt.Printf("Set %s = %v\n", args[0], value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(settingsCmd)
}
