package selector_test

import (
	"testing"

	"github.com/corvidmq/ommq/selector"
)

func TestBind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		args []string
		want string
	}{
		{
			name: "no args",
			expr: "active = true",
			args: nil,
			want: "active = true",
		},
		{
			name: "numeric",
			expr: "priority > ?",
			args: []string{"5"},
			want: "priority > 5",
		},
		{
			name: "string",
			expr: "color = ?",
			args: []string{"red"},
			want: "color = 'red'",
		},
		{
			name: "mixed",
			expr: "priority > ? AND color = ?",
			args: []string{"5", "red"},
			want: "priority > 5 AND color = 'red'",
		},
		{
			name: "more placeholders than args",
			expr: "a = ? AND b = ? AND c = ?",
			args: []string{"1", "2"},
			want: "a = 1 AND b = 2 AND c = ?",
		},
		{
			name: "quote escaping",
			expr: "name = ?",
			args: []string{"O'Brien"},
			want: "name = 'O''Brien'",
		},
		{
			name: "boolean not quoted",
			expr: "urgent = ?",
			args: []string{"true"},
			want: "urgent = true",
		},
		{
			name: "null not quoted",
			expr: "region = ?",
			args: []string{"NULL"},
			want: "region = NULL",
		},
		{
			name: "float not quoted",
			expr: "weight > ?",
			args: []string{"3.14"},
			want: "weight > 3.14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := selector.Bind(tt.expr, tt.args)
			if got != tt.want {
				t.Errorf("Bind(%q, %v) = %q, want %q", tt.expr, tt.args, got, tt.want)
			}
		})
	}
}
