package disk

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FileDevice", func() {
	var (
		path   string
		device *FileDevice
	)

	BeforeEach(func() {
		var err error

		path = filepath.Join(GinkgoT().TempDir(), "swap.img")
		device, err = OpenFileDevice(path, 16)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(device.Close()).To(Succeed())
	})

	It("should size the image to the sector count", func() {
		info, err := os.Stat(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size()).To(Equal(int64(16 * SectorSize)))
		Expect(device.NumSectors()).To(Equal(uint64(16)))
	})

	It("should store sectors at their offset in the image", func() {
		data := bytes.Repeat([]byte{0xab}, SectorSize)
		Expect(device.WriteSector(3, data)).To(Succeed())

		raw, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw[3*SectorSize : 4*SectorSize]).To(Equal(data))

		buf := make([]byte, SectorSize)
		Expect(device.ReadSector(3, buf)).To(Succeed())
		Expect(buf).To(Equal(data))
	})

	It("should reject sectors beyond the capacity", func() {
		buf := make([]byte, SectorSize)

		Expect(device.ReadSector(16, buf)).To(MatchError(ErrSectorOutOfRange))
	})
})
