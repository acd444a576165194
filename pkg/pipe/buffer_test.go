package pipe

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewBuffer_WriteAndRead(t *testing.T) {
	const max = 10
	buf, err := NewBuffer(max)
	if err != nil {
		t.Fatalf("NewBuffer error: %v", err)
	}

	input := "hello"
	n, err := buf.W.Write([]byte(input))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(input) {
		t.Errorf("Write bytes = %d, want %d", n, len(input))
	}
	buf.W.Close()
	<-buf.Done

	if got := buf.Buffer.String(); got != input {
		t.Errorf("Buffer content = %q, want %q", got, input)
	}
}

func TestNewBuffer_MaxBytes(t *testing.T) {
	const max = 5
	buf, err := NewBuffer(max)
	if err != nil {
		t.Fatalf("NewBuffer error: %v", err)
	}

	input := "toolonginput"
	if _, err = io.Copy(buf.W, strings.NewReader(input)); err != nil {
		t.Fatalf("Copy error: %v", err)
	}
	buf.W.Close()
	<-buf.Done

	got := buf.Buffer.String()
	if len(got) != max+1 {
		t.Errorf("Buffer length = %d, want %d", len(got), max+1)
	}
	if got != input[:max+1] {
		t.Errorf("Buffer content = %q, want %q", got, input[:max+1])
	}
}

func TestBuffer_String(t *testing.T) {
	buf, err := NewBuffer(8)
	if err != nil {
		t.Fatalf("NewBuffer error: %v", err)
	}
	_, _ = buf.W.Write([]byte("abc"))
	buf.W.Close()
	<-buf.Done

	if want := "Buffer[3/8]"; buf.String() != want {
		t.Errorf("String() = %q, want %q", buf.String(), want)
	}
}

func TestNewBuffer_DoneCloses(t *testing.T) {
	buf, err := NewBuffer(4)
	if err != nil {
		t.Fatalf("NewBuffer error: %v", err)
	}
	go func() {
		_, _ = buf.W.Write([]byte("test"))
		buf.W.Close()
	}()

	select {
	case <-buf.Done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for Done channel")
	}
}
