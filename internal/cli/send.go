package cli

import (
	"fmt"
	"io"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/logrelay/internal/models"
)

var fakeActions = []string{"login", "logout", "page_view", "checkout", "search", "test_log"}

var fakeLevels = []string{models.LevelDebug, models.LevelInfo, models.LevelInfo, models.LevelWarn, models.LevelError}

func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an event",
		Long:  "Send an event through the Elasticsearch/Logstash cascade (or straight to Logstash with --logstash)",
		Example: `  relayctl send --message "cache warmed" --data user_id=456 --data action=test_log
  relayctl send --fake 20 --service checkout
  relayctl send --logstash -m "pipeline check"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")
			level, _ := cmd.Flags().GetString("level")
			service, _ := cmd.Flags().GetString("service")
			environment, _ := cmd.Flags().GetString("environment")
			data, _ := cmd.Flags().GetStringToString("data")
			fake, _ := cmd.Flags().GetInt("fake")
			seed, _ := cmd.Flags().GetInt64("seed")
			logstash, _ := cmd.Flags().GetBool("logstash")

			var events []models.EventRequest
			switch {
			case fake > 0:
				events = fakeEvents(gofakeit.New(seed), fake, service, environment)
			case message != "":
				event := models.EventRequest{
					Level:       level,
					Message:     message,
					Service:     service,
					Environment: environment,
				}
				if len(data) > 0 {
					event.Data = make(map[string]any, len(data))
					for k, v := range data {
						event.Data[k] = v
					}
				}
				events = append(events, event)
			default:
				return fmt.Errorf("either --message or --fake is required")
			}

			client := clientFromFlags(cmd)
			send := client.Send
			if logstash {
				send = client.SendLogstash
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, event := range events {
				resp, err := send(cmd.Context(), event)
				if err != nil {
					return fmt.Errorf("failed to send event: %w", err)
				}
				if !resp.Success {
					failed++
				}
				if err := printDelivery(out, outputFormat(cmd), resp); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d events were not delivered", failed, len(events))
			}
			return nil
		},
	}

	cmd.Flags().StringP("message", "m", "", "Event message")
	cmd.Flags().String("level", models.LevelInfo, "Event level")
	cmd.Flags().String("service", "", "Origin service (default: the relay's own)")
	cmd.Flags().String("environment", "", "Origin environment (default: the relay's own)")
	cmd.Flags().StringToString("data", nil, "Event data as key=value (repeatable)")
	cmd.Flags().Int("fake", 0, "Send N generated events instead of --message")
	cmd.Flags().Int64("seed", 0, "Seed for --fake (0 picks a random seed)")
	cmd.Flags().Bool("logstash", false, "Bypass Elasticsearch and send straight to Logstash")

	return cmd
}

// fakeEvents builds n plausible application events.
func fakeEvents(faker *gofakeit.Faker, n int, service, environment string) []models.EventRequest {
	events := make([]models.EventRequest, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, models.EventRequest{
			Level:       faker.RandomString(fakeLevels),
			Message:     faker.HackerPhrase(),
			Service:     service,
			Environment: environment,
			Data: map[string]any{
				"user_id":    faker.Number(1, 9999),
				"username":   faker.Username(),
				"action":     faker.RandomString(fakeActions),
				"ip_address": faker.IPv4Address(),
				"user_agent": faker.UserAgent(),
			},
		})
	}
	return events
}

func printDelivery(out io.Writer, format string, resp *models.DeliveryResponse) error {
	if handled, err := render(out, format, resp); handled {
		return err
	}

	if resp.Success {
		fmt.Fprintf(out, "delivered (%s)", resp.Method)
		if len(resp.Response) > 0 {
			fmt.Fprintf(out, ": %s", resp.Response)
		}
		fmt.Fprintln(out)
		return nil
	}

	fmt.Fprintf(out, "not delivered: %s\n", resp.Error)
	if resp.Suggestion != "" {
		fmt.Fprintf(out, "suggestion: %s\n", resp.Suggestion)
	}
	return nil
}
