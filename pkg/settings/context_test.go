package settings

import (
	"context"
	"testing"
)

func TestFromContext(t *testing.T) {
	stored := &Run{NoColor: true, LogFile: "kvwatch.log"}
	tests := []struct {
		name   string
		ctx    context.Context
		wantOk bool
	}{
		{name: "with settings", ctx: IntoContext(context.Background(), stored), wantOk: true},
		{name: "without settings", ctx: context.Background()},
		{name: "wrong type", ctx: context.WithValue(context.Background(), settingsContextKey, "wrong type")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromContext(tt.ctx)
			if ok != tt.wantOk {
				t.Fatalf("FromContext() ok = %v; want %v", ok, tt.wantOk)
			}
			if !ok {
				if got != nil {
					t.Errorf("FromContext() = %v; want nil", got)
				}
				return
			}
			if got != stored {
				t.Error("FromContext() returned a different pointer than stored")
			}
		})
	}
}
