package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/engramdev/engram/pkg/config"
	"github.com/engramdev/engram/pkg/engram"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/retrieval"
)

// Commands understood by the REPL
const (
	cmdHelp     = "!help"
	cmdQuit     = "!quit"
	cmdRemember = "!remember"
	cmdRecall   = "!recall"
	cmdSearch   = "!search"
	cmdSemantic = "!semantic"
	cmdRelated  = "!related"
	cmdForget   = "!forget"
	cmdExtract  = "!extract"
	cmdContext  = "!context"
)

const helpText = `
Engram Client - Command Reference:
-----------------------------------------
!help             - Show this help message
!remember <text>  - Run text through the detector and store it if worthy
!recall <id>      - Fetch a single memory by id
!search <query>   - Search memories by keyword
!semantic <query> - Search memories by vector similarity
!related <id>     - Find memories related to a stored memory
!forget <id>      - Delete a memory
!extract <text>   - Show entities and relationships without storing
!context <query>  - Compose relevant memories into a context block
!quit             - Exit

Notes:
- Plain text input (no ! prefix) is treated as !remember
- Tab completion is available for commands
- Use up/down arrows for command history`

// historyFile is the file where command history is stored
const historyFile = ".engram_history"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	stdinMode := flag.Bool("s", false, "Read from stdin and exit when complete")
	flag.Parse()

	log.Setup(log.Config{
		Level:  log.WarnLevel,
		Format: log.TextFormat,
	})

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	client, err := engram.NewFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize engram: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	runCLI(client, cfg, *stdinMode)
}

func runCLI(client *engram.Engram, cfg *config.Config, stdinMode bool) {
	if stdinMode {
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("\n=== Engram Client (stdin mode) ===")
		fmt.Println("Store:", cfg.Store.Type, "| Embedder:", cfg.Embedding.Provider)

		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if input == "" || strings.HasPrefix(input, "#") {
				continue
			}
			fmt.Print("engram> ", input, "\n")
			if input == cmdQuit {
				break
			}
			processCommand(input, client)
		}
		if err := scanner.Err(); err != nil {
			fmt.Printf("Error reading stdin: %v\n", err)
		}
		fmt.Println("Goodbye!")
		return
	}

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	line.SetCompleter(func(line string) (c []string) {
		commands := []string{cmdHelp, cmdQuit, cmdRemember, cmdRecall, cmdSearch, cmdSemantic, cmdRelated, cmdForget, cmdExtract, cmdContext}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("\n=== Engram Client ===")
	fmt.Println("Store:", cfg.Store.Type, "| Embedder:", cfg.Embedding.Provider)
	fmt.Println("Type !help for available commands.")

	for {
		input, err := line.Prompt("engram> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if input == cmdQuit {
			fmt.Println("Goodbye!")
			break
		}

		processCommand(input, client)
	}
}

func processCommand(input string, client *engram.Engram) {
	ctx := context.Background()

	cmd := cmdRemember
	arg := input
	if strings.HasPrefix(input, "!") {
		parts := strings.SplitN(input, " ", 2)
		cmd = parts[0]
		arg = ""
		if len(parts) == 2 {
			arg = strings.TrimSpace(parts[1])
		}
	}

	switch cmd {
	case cmdHelp:
		fmt.Println(helpText)

	case cmdRemember:
		if arg == "" {
			fmt.Println("Usage: !remember <text>")
			return
		}
		result, err := client.Ingest(ctx, arg)
		if err != nil {
			fmt.Printf("Error storing memory: %v\n", err)
			return
		}
		if !result.Stored {
			fmt.Printf("Not worth storing (importance %.2f, declarative %v)\n",
				result.Detection.ImportanceScore, result.Detection.IsDeclarative)
			return
		}
		fmt.Printf("Stored memory %s (importance %.2f, categories %v)\n",
			result.Record.ID, result.Record.ImportanceScore, result.Record.Categories)

	case cmdRecall:
		if arg == "" {
			fmt.Println("Usage: !recall <id>")
			return
		}
		record, err := client.Recall(ctx, arg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("[%s] %s\n  categories=%v importance=%.2f stored=%s\n",
			record.ID, record.Content, record.Categories,
			record.ImportanceScore, record.Timestamp.Format("2006-01-02 15:04:05"))

	case cmdSearch, cmdSemantic:
		if arg == "" {
			fmt.Printf("Usage: %s <query>\n", cmd)
			return
		}
		results, err := client.Search(ctx, arg, retrieval.Options{
			UseSemanticSearch: cmd == cmdSemantic,
		})
		if err != nil {
			fmt.Printf("Error searching: %v\n", err)
			return
		}
		printResults(results)

	case cmdRelated:
		if arg == "" {
			fmt.Println("Usage: !related <id>")
			return
		}
		results, err := client.Related(ctx, arg, retrieval.Options{})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		printResults(results)

	case cmdForget:
		if arg == "" {
			fmt.Println("Usage: !forget <id>")
			return
		}
		if err := client.Forget(ctx, arg); err != nil {
			fmt.Printf("Error deleting memory: %v\n", err)
			return
		}
		fmt.Println("Deleted.")

	case cmdExtract:
		if arg == "" {
			fmt.Println("Usage: !extract <text>")
			return
		}
		result, err := client.Relationships(ctx, arg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		names := result.Entities.Names()
		fmt.Printf("Entities (%d): %s\n", len(names), strings.Join(names, ", "))
		fmt.Printf("Relationships (%d):\n", len(result.Relationships))
		for _, rel := range result.Relationships {
			fmt.Printf("  %s -[%s]-> %s (%.2f)\n", rel.From, rel.Type, rel.To, rel.Confidence)
		}

	case cmdContext:
		if arg == "" {
			fmt.Println("Usage: !context <query>")
			return
		}
		composed, err := client.Context(ctx, arg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if composed == "" {
			fmt.Println("No relevant memories.")
			return
		}
		fmt.Println(composed)

	default:
		fmt.Printf("Unknown command: %s (type !help)\n", cmd)
	}
}

func printResults(results []retrieval.Result) {
	if len(results) == 0 {
		fmt.Println("No memories found.")
		return
	}
	fmt.Printf("Found %d memories:\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. [%s] %s\n   relevance=%.3f similarity=%.3f categories=%v\n",
			i+1, r.Record.ID, r.Record.Content, r.Relevance, r.Similarity, r.Record.Categories)
	}
}
