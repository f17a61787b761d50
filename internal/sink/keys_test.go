package sink

import (
	"reflect"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    KeyPress
		wantErr bool
	}{
		{
			name:  "simple letter",
			input: "a",
			want:  KeyPress{Key: "a"},
		},
		{
			name:  "uppercase letter",
			input: "A",
			want:  KeyPress{Key: "a"}, // Normalized to lowercase
		},
		{
			name:  "number",
			input: "5",
			want:  KeyPress{Key: "5"},
		},
		{
			name:  "special key",
			input: "enter",
			want:  KeyPress{Key: "enter"},
		},
		{
			name:  "ctrl modifier",
			input: "ctrl+c",
			want:  KeyPress{Ctrl: true, Key: "c"},
		},
		{
			name:  "alt modifier",
			input: "alt+f4",
			want:  KeyPress{Alt: true, Key: "f4"},
		},
		{
			name:  "shift modifier",
			input: "shift+tab",
			want:  KeyPress{Shift: true, Key: "tab"},
		},
		{
			name:  "meta modifier",
			input: "meta+a",
			want:  KeyPress{Meta: true, Key: "a"},
		},
		{
			name:  "cmd modifier alias",
			input: "cmd+q",
			want:  KeyPress{Meta: true, Key: "q"},
		},
		{
			name:  "multiple modifiers",
			input: "ctrl+shift+z",
			want:  KeyPress{Ctrl: true, Shift: true, Key: "z"},
		},
		{
			name:  "function key",
			input: "f12",
			want:  KeyPress{Key: "f12"},
		},
		{
			name:  "arrow key",
			input: "up",
			want:  KeyPress{Key: "up"},
		},
		{
			name:  "escape",
			input: "esc",
			want:  KeyPress{Key: "esc"},
		},
		{
			name:    "unknown modifier",
			input:   "foo+a",
			wantErr: true,
		},
		{
			name:    "empty key",
			input:   "ctrl+",
			wantErr: true,
		},
		{
			name:    "invalid key name",
			input:   "invalid_key",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyPressToBytes(t *testing.T) {
	tests := []struct {
		name string
		key  KeyPress
		want []byte
	}{
		{
			name: "ctrl+c",
			key:  KeyPress{Ctrl: true, Key: "c"},
			want: []byte{0x03}, // ASCII ETX (ctrl+c)
		},
		{
			name: "ctrl+z",
			key:  KeyPress{Ctrl: true, Key: "z"},
			want: []byte{0x1a}, // ASCII SUB
		},
		{
			name: "enter",
			key:  KeyPress{Key: "enter"},
			want: []byte{'\r'},
		},
		{
			name: "tab",
			key:  KeyPress{Key: "tab"},
			want: []byte{'\t'},
		},
		{
			name: "escape",
			key:  KeyPress{Key: "esc"},
			want: []byte{0x1b},
		},
		{
			name: "backspace",
			key:  KeyPress{Key: "backspace"},
			want: []byte{0x7f},
		},
		{
			name: "up arrow",
			key:  KeyPress{Key: "up"},
			want: []byte{0x1b, '[', 'A'},
		},
		{
			name: "left arrow",
			key:  KeyPress{Key: "left"},
			want: []byte{0x1b, '[', 'D'},
		},
		{
			name: "page down",
			key:  KeyPress{Key: "pagedown"},
			want: []byte{0x1b, '[', '6', '~'},
		},
		{
			name: "delete",
			key:  KeyPress{Key: "delete"},
			want: []byte{0x1b, '[', '3', '~'},
		},
		{
			name: "f1",
			key:  KeyPress{Key: "f1"},
			want: []byte{0x1b, 'O', 'P'},
		},
		{
			name: "f12",
			key:  KeyPress{Key: "f12"},
			want: []byte{0x1b, '[', '2', '4', '~'},
		},
		{
			name: "alt+x",
			key:  KeyPress{Alt: true, Key: "x"},
			want: []byte{0x1b, 'x'},
		},
		{
			name: "plain letter",
			key:  KeyPress{Key: "x"},
			want: []byte{'x'},
		},
		{
			name: "shift+letter",
			key:  KeyPress{Shift: true, Key: "a"},
			want: []byte{'A'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.ToBytes()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToBytes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitSteps(t *testing.T) {
	acc := 2.7
	if got := splitSteps(&acc); got != 2 {
		t.Errorf("splitSteps(2.7) = %d, want 2", got)
	}
	if acc < 0.69 || acc > 0.71 {
		t.Errorf("remainder = %v, want ~0.7", acc)
	}

	acc = -1.2
	if got := splitSteps(&acc); got != -1 {
		t.Errorf("splitSteps(-1.2) = %d, want -1", got)
	}
	if acc < -0.21 || acc > -0.19 {
		t.Errorf("remainder = %v, want ~-0.2", acc)
	}

	acc = 0.4
	if got := splitSteps(&acc); got != 0 {
		t.Errorf("splitSteps(0.4) = %d, want 0", got)
	}
}
