package banner

import (
	"fmt"
)

const banner = `
██████╗ ██╗   ██╗██╗     ███████╗███████╗ ██████╗██╗  ██╗ █████╗ ████████╗
██╔══██╗██║   ██║██║     ██╔════╝██╔════╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██████╔╝██║   ██║██║     ███████╗█████╗  ██║     ███████║███████║   ██║
██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝  ██║     ██╔══██║██╔══██║   ██║
██║     ╚██████╔╝███████╗███████║███████╗╚██████╗██║  ██║██║  ██║   ██║
╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with the effective listen address,
// storage path and config source.
func Print(addr, dbPath, source, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if source != "" {
		fmt.Printf("Config source: %s\n", source)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST   /v1/auth/register          - Create an account")
	fmt.Println("POST   /v1/auth/login             - Log in, get a bearer token")
	fmt.Println("GET    /v1/ws?token=<t>           - Realtime websocket")
	fmt.Println("POST   /v1/chat/send              - Send a direct message")
	fmt.Println("GET    /v1/chat/threads           - List conversations")
	fmt.Println("GET    /v1/chat/messages/{thread} - Page through history")
	fmt.Println("POST   /v1/chat/mark-read         - Read receipts")
	fmt.Println("POST   /v1/chat/reaction/{msg}    - Toggle a reaction")
	fmt.Println("GET    /v1/chat/online            - Who is connected")
	fmt.Println("GET    /docs/                     - API docs (Swagger UI)")
	fmt.Println("\n== Production? =================================================")
	fmt.Println("Set strong signing keys (PULSECHAT_SIGNING_KEYS)")
	fmt.Println("Set a proper storage path (--db) and TLS cert/key")
}
