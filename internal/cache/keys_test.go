package cache

import "testing"

func TestGenerateCacheKey(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		objectType  string
		identifier  string
		paramsKey   []string
		expectedKey string
	}{
		{
			name:        "history state",
			serviceName: "trivia",
			objectType:  "history",
			identifier:  "state",
			expectedKey: "ashbot:trivia:history:state",
		},
		{
			name:        "empty params",
			serviceName: "games",
			objectType:  "snapshot",
			identifier:  "current",
			paramsKey:   []string{},
			expectedKey: "ashbot:games:snapshot:current",
		},
		{
			name:        "with params",
			serviceName: "games",
			objectType:  "snapshot",
			identifier:  "current",
			paramsKey:   []string{"v2", "completed"},
			expectedKey: "ashbot:games:snapshot:current:v2_completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actualKey := GenerateCacheKey(tt.serviceName, tt.objectType, tt.identifier, tt.paramsKey...)
			if actualKey != tt.expectedKey {
				t.Errorf("GenerateCacheKey() = %v, want %v", actualKey, tt.expectedKey)
			}
		})
	}
}

func TestTriviaKeyFamilies(t *testing.T) {
	keys := map[string]string{
		GameSnapshotKey():     "ashbot:trivia:games:snapshot",
		HistoryStateKey():     "ashbot:trivia:history:state",
		SessionResultsKey(42): "ashbot:trivia:results:42",
		SessionResultsKey(-1): "ashbot:trivia:results:-1",
	}
	for got, want := range keys {
		if got != want {
			t.Errorf("key = %v, want %v", got, want)
		}
	}
}
