package exr_test

import (
	"fmt"
	"log"

	"github.com/mrjoshuak/go-exrio/exr"
)

func Example() {
	type pixel struct{ R, G, B float32 }

	h := exr.NewHeader()
	h.SetResolution(64, 32)
	for _, name := range []string{"R", "G", "B"} {
		h.AddChannel(name, exr.PixelTypeFloat)
	}

	src := make([]pixel, 64*32)
	for i := range src {
		src[i] = pixel{0.82, 1.78, 0.21}
	}
	fb, _ := exr.NewFrameBuffer(64, 32)
	if err := exr.InsertChannels(fb, []string{"R", "G", "B"}, src); err != nil {
		log.Fatal(err)
	}

	buf := exr.NewWriteBuffer()
	out, err := exr.NewScanlineOutputFile(buf, h)
	if err != nil {
		log.Fatal(err)
	}
	if err := out.WritePixels(fb); err != nil {
		log.Fatal(err)
	}
	if err := out.Close(); err != nil {
		log.Fatal(err)
	}

	in, err := exr.NewInputFileFromBytes(buf.Bytes())
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	dst := make([]pixel, 64*32)
	fbm, _ := exr.NewFrameBufferMut(64, 32)
	fills := []exr.ChannelFill{{Name: "R"}, {Name: "G"}, {Name: "B"}}
	if err := exr.InsertChannelsMut(fbm, fills, dst); err != nil {
		log.Fatal(err)
	}
	if err := in.ReadPixels(fbm); err != nil {
		log.Fatal(err)
	}
	w, ht := in.Header().DataDimensions()
	fmt.Println(w, ht, dst[100])
	// Output: 64 32 {0.82 1.78 0.21}
}

func ExampleInputFile_ReadPixelsPartial() {
	h := exr.NewHeader()
	h.SetResolution(4, 10)
	h.AddChannel("Y", exr.PixelTypeUint)

	rows := make([]uint32, 4*10)
	for i := range rows {
		rows[i] = uint32(i / 4)
	}
	fb, _ := exr.NewFrameBuffer(4, 10)
	exr.InsertChannel(fb, "Y", rows)
	buf := exr.NewWriteBuffer()
	out, _ := exr.NewScanlineOutputFile(buf, h)
	out.WritePixels(fb)
	out.Close()

	in, _ := exr.NewInputFileFromBytes(buf.Bytes())
	slab := make([]uint32, 4*4)
	fbm, _ := exr.NewFrameBufferMut(4, 4)
	exr.InsertChannelMut(fbm, "Y", 0, slab)
	for start := 0; start < 10; start += 4 {
		n, err := in.ReadPixelsPartial(start, fbm)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(start, n, slab[0])
	}
	// Output:
	// 0 4 0
	// 4 4 4
	// 8 2 8
}
