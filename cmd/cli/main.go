package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "inspection":
		handleInspection(args)
	case "scheduler":
		handleScheduler(args)
	case "dashboard":
		handleDashboard(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: inspectrack auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleInspection(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: inspectrack inspection <list|create|start|complete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listInspections(args[1:])
	case "create":
		createInspection(args[1:])
	case "start":
		transitionInspection(args[1:], "start")
	case "complete":
		transitionInspection(args[1:], "complete")
	default:
		fmt.Printf("unknown inspection command: %s\n", subCmd)
	}
}

func handleScheduler(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: inspectrack scheduler <run>")
		return
	}

	switch args[0] {
	case "run":
		runScheduler()
	default:
		fmt.Printf("unknown scheduler command: %s\n", args[0])
	}
}

func handleDashboard(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: inspectrack dashboard <summary>")
		return
	}

	switch args[0] {
	case "summary":
		showSummary(args[1:])
	default:
		fmt.Printf("unknown dashboard command: %s\n", args[0])
	}
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Inspection commands
func listInspections(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/inspections", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var inspections []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&inspections)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCLASSIFICATION\tDUE\tINSPECTOR")
	for _, i := range inspections {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			i["id"], i["status"], i["classification"], i["dueDate"], i["inspectorId"])
	}
	w.Flush()
}

func createInspection(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	template := fs.String("template", "", "template ID")
	inspector := fs.String("inspector", "", "inspector user ID")
	force := fs.Bool("force", false, "bypass the single-open-inspection guard")

	fs.Parse(args)

	if *template == "" || *inspector == "" {
		fmt.Println("Error: template and inspector are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"templateId":  *template,
		"inspectorId": *inspector,
	}
	if *force {
		payload["force"] = true
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/inspections", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Inspection created: %v (due %v)\n", result["id"], result["dueDate"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func transitionInspection(args []string, action string) {
	if len(args) < 1 {
		fmt.Printf("Usage: inspectrack inspection %s <inspection-id>\n", action)
		return
	}

	req, _ := http.NewRequest("POST", getAPIURL()+"/inspections/"+args[0]+"/"+action, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Inspection %v is now %v\n", result["id"], result["status"])
	} else {
		fmt.Printf("✗ %s failed: %v\n", action, result)
	}
}

// Scheduler commands
func runScheduler() {
	req, _ := http.NewRequest("POST", getAPIURL()+"/scheduler/run", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 202 {
		fmt.Println("✓ Scheduling pass completed")
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Scheduler run failed: %v\n", result)
	}
}

// Dashboard commands
func showSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	org := fs.String("org", "", "organization ID (super admin only)")

	fs.Parse(args)

	url := getAPIURL() + "/dashboard/summary"
	if *org != "" {
		url += "?orgId=" + *org
	}

	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var summary struct {
		OrgID       string         `json:"orgId"`
		Totals      map[string]int `json:"totals"`
		Departments []struct {
			Name   string         `json:"name"`
			Counts map[string]int `json:"counts"`
		} `json:"departments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil || resp.StatusCode != 200 {
		fmt.Printf("✗ Summary failed (status %d)\n", resp.StatusCode)
		return
	}

	fmt.Printf("Organization: %s\n\n", summary.OrgID)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCOPE\tOVERDUE\tDUE-SOON\tPENDING\tCOMPLETED")
	fmt.Fprintf(w, "total\t%d\t%d\t%d\t%d\n",
		summary.Totals["overdue"], summary.Totals["due-soon"],
		summary.Totals["pending"], summary.Totals["completed"])
	for _, d := range summary.Departments {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			d.Name, d.Counts["overdue"], d.Counts["due-soon"],
			d.Counts["pending"], d.Counts["completed"])
	}
	w.Flush()
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("INSPECTRACK_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.inspectrack/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.inspectrack", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Inspectrack CLI

Usage:
  inspectrack <command> [options]

Commands:
  auth        User authentication (login, logout, who)
  inspection  Inspection operations (list, create, start, complete)
  scheduler   Trigger an on-demand scheduling pass (admin access required)
  dashboard   Classification summaries (summary)
  help        Show this help message

Environment Variables:
  INSPECTRACK_API    API endpoint (default: http://localhost:8080/api)

Examples:
  inspectrack auth login -email admin@example.com -password pass
  inspectrack inspection list
  inspectrack inspection create -template <template-id> -inspector <user-id>
  inspectrack dashboard summary
`)
}
