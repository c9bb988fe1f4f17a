package logging

import (
	"sync"
	"time"

	"hilbee/types"
)

var (
	logClients = make(map[chan types.LogMessage]bool)
	logMutex   = sync.RWMutex{}
)

func Init() {
	Broadcast("log stream initialized", "system")
}

func AddClient(client chan types.LogMessage) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logClients[client] = true
}

func RemoveClient(client chan types.LogMessage) {
	logMutex.Lock()
	defer logMutex.Unlock()
	delete(logClients, client)
	close(client)
}

// Broadcast fans a log line out to every attached stream client. Clients
// that are not keeping up are skipped, never blocked on.
func Broadcast(message, logType string) {
	logMsg := types.LogMessage{
		Time:    time.Now().Format("15:04:05"),
		Message: message,
		Type:    logType,
	}

	logMutex.RLock()
	defer logMutex.RUnlock()

	for client := range logClients {
		select {
		case client <- logMsg:
		default:
			// client not ready, drop the line
		}
	}
}
